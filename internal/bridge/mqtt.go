package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/mqtt"
)

// Defaults applied by NewMQTTBridge when an option is zero.
const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultSource         = "shadeworker"

	// replyBuffer covers a queued ack followed by the final ack.
	replyBuffer = 4
)

// Transport is the subset of the MQTT client the bridge needs.
// *mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	HasSubscription(topic string) bool
	IsConnected() bool
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Options configures an MQTTBridge.
type Options struct {
	// Protocol is the bridge's topic segment, e.g. "somfy".
	Protocol string

	QoS byte

	// RequestTimeout bounds each request and each command acknowledgement
	// when the caller's context carries no earlier deadline.
	RequestTimeout time.Duration

	// CommandsPerSecond limits outgoing commands. Zero disables limiting.
	CommandsPerSecond float64
	Burst             int

	// Source is stamped on every command.
	Source string
}

// MQTTBridge speaks the request/ack protocol to a protocol bridge over MQTT.
//
// All connections share one wildcard subscription per reply topic; replies
// are routed to waiters by request or command ID. Connections are logical
// sessions and share the underlying MQTT client.
type MQTTBridge struct {
	transport Transport
	opts      Options
	topics    mqtt.Topics
	limiter   *rate.Limiter
	logger    Logger

	// mu serialises subscribe and unsubscribe of the reply topics.
	mu sync.Mutex

	pending *pendingReplies
}

// NewMQTTBridge creates a bridge over transport.
func NewMQTTBridge(transport Transport, opts Options) *MQTTBridge {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Source == "" {
		opts.Source = DefaultSource
	}

	b := &MQTTBridge{
		transport: transport,
		opts:      opts,
		logger:    noopLogger{},
		pending:   newPendingReplies(),
	}
	if opts.CommandsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(opts.CommandsPerSecond), burst)
	}
	return b
}

// SetLogger sets the logger for the bridge.
func (b *MQTTBridge) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Connect acquires a logical connection. It fails when the MQTT client is
// offline or the reply subscriptions cannot be established.
func (b *MQTTBridge) Connect(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if !b.transport.IsConnected() {
		return nil, fmt.Errorf("%w: %w", ErrConnect, mqtt.ErrNotConnected)
	}
	if err := b.ensureSubscribed(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	session := uuid.NewString()
	b.logger.Debug("bridge connection opened", "session", session, "protocol", b.opts.Protocol)
	return &mqttConn{bridge: b, session: session}, nil
}

// Close drops the shared reply subscriptions. Connections opened later
// subscribe again.
func (b *MQTTBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, r := range b.replyRoutes() {
		if !b.transport.HasSubscription(r.topic) {
			continue
		}
		if err := b.transport.Unsubscribe(r.topic); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type replyRoute struct {
	topic   string
	handler mqtt.MessageHandler
}

func (b *MQTTBridge) replyRoutes() []replyRoute {
	return []replyRoute{
		{b.topics.AllBridgeResponses(b.opts.Protocol), b.handleResponse},
		{b.topics.AllBridgeAcks(b.opts.Protocol), b.handleAck},
	}
}

// ensureSubscribed subscribes whichever reply topic the transport is not
// already tracking.
func (b *MQTTBridge) ensureSubscribed() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.replyRoutes() {
		if b.transport.HasSubscription(r.topic) {
			continue
		}
		if err := b.transport.Subscribe(r.topic, b.opts.QoS, r.handler); err != nil {
			return err
		}
	}
	return nil
}

func (b *MQTTBridge) handleResponse(topic string, payload []byte) error {
	var msg struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding response on %s: %w", topic, err)
	}
	if !b.pending.deliver(msg.RequestID, payload) {
		b.logger.Debug("unsolicited bridge response", "topic", topic, "request_id", msg.RequestID)
	}
	return nil
}

func (b *MQTTBridge) handleAck(topic string, payload []byte) error {
	var msg struct {
		CommandID string `json:"command_id"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding ack on %s: %w", topic, err)
	}
	if !b.pending.deliver(msg.CommandID, payload) {
		b.logger.Debug("unsolicited bridge ack", "topic", topic, "command_id", msg.CommandID)
	}
	return nil
}

func (b *MQTTBridge) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}
	return b.transport.Publish(topic, payload, b.opts.QoS, false)
}

// mqttConn is one logical session on an MQTTBridge.
type mqttConn struct {
	bridge  *MQTTBridge
	session string
	closed  atomic.Bool
}

func (c *mqttConn) Devices(ctx context.Context, domain string) ([]DeviceInfo, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	b := c.bridge

	ctx, cancel := context.WithTimeout(ctx, b.opts.RequestTimeout)
	defer cancel()

	req := RequestMessage{
		RequestID:  uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Action:     ActionListDevices,
		Parameters: map[string]any{"domain": domain},
	}
	replies := b.pending.register(req.RequestID)
	defer b.pending.remove(req.RequestID)

	if err := b.publish(b.topics.BridgeRequest(b.opts.Protocol, req.RequestID), req); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRequest, ActionListDevices, err)
	}

	select {
	case payload := <-replies:
		var resp ResponseMessage
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %w", ErrRequest, err)
		}
		if !resp.Success {
			return nil, fmt.Errorf("%w: %s: %w", ErrRequest, ActionListDevices, resp.Error)
		}
		var list DeviceList
		if len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, &list); err != nil {
				return nil, fmt.Errorf("%w: decoding device list: %w", ErrRequest, err)
			}
		}
		b.logger.Debug("bridge devices listed", "session", c.session, "domain", domain, "count", len(list.Devices))
		return list.Devices, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: no response: %w", ErrRequest, ActionListDevices, ctx.Err())
	}
}

func (c *mqttConn) Lower(ctx context.Context, deviceID string) error {
	return c.command(ctx, deviceID, CommandLower, nil)
}

func (c *mqttConn) Raise(ctx context.Context, deviceID string) error {
	return c.command(ctx, deviceID, CommandRaise, nil)
}

func (c *mqttConn) SetValue(ctx context.Context, deviceID string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %s %s: level %d out of range", ErrCommand, CommandSetValue, deviceID, percent)
	}
	return c.command(ctx, deviceID, CommandSetValue, map[string]any{"level": percent})
}

func (c *mqttConn) command(ctx context.Context, deviceID, command string, params map[string]any) error {
	if c.closed.Load() {
		return ErrClosed
	}
	b := c.bridge

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrCommand, command, deviceID, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.RequestTimeout)
	defer cancel()

	msg := CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   deviceID,
		Command:    command,
		Parameters: params,
		Source:     b.opts.Source,
	}
	replies := b.pending.register(msg.ID)
	defer b.pending.remove(msg.ID)

	if err := b.publish(b.topics.BridgeCommand(b.opts.Protocol, deviceID), msg); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrCommand, command, deviceID, err)
	}

	for {
		select {
		case payload := <-replies:
			var ack AckMessage
			if err := json.Unmarshal(payload, &ack); err != nil {
				return fmt.Errorf("%w: %s %s: decoding ack: %w", ErrCommand, command, deviceID, err)
			}
			switch ack.Status {
			case AckAccepted:
				b.logger.Debug("bridge command accepted", "session", c.session, "device_id", deviceID, "command", command)
				return nil
			case AckQueued:
				continue
			case AckFailed, AckTimeout:
				return fmt.Errorf("%w: %s %s: %s: %w", ErrCommand, command, deviceID, ack.Status, ack.Error)
			default:
				return fmt.Errorf("%w: %s %s: unknown ack status %q", ErrCommand, command, deviceID, ack.Status)
			}
		case <-ctx.Done():
			return fmt.Errorf("%w: %s %s: no acknowledgement: %w", ErrCommand, command, deviceID, ctx.Err())
		}
	}
}

func (c *mqttConn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.bridge.logger.Debug("bridge connection closed", "session", c.session)
	}
	return nil
}

// pendingReplies routes reply payloads to the goroutine waiting on an ID.
type pendingReplies struct {
	mu      sync.Mutex
	waiters map[string]chan []byte
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{waiters: make(map[string]chan []byte)}
}

func (p *pendingReplies) register(id string) <-chan []byte {
	ch := make(chan []byte, replyBuffer)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingReplies) remove(id string) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

// deliver hands payload to the waiter for id without blocking. It reports
// whether a waiter was registered.
func (p *pendingReplies) deliver(id string, payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.waiters[id]
	if !ok {
		return false
	}
	select {
	case ch <- payload:
	default:
	}
	return true
}

func (p *pendingReplies) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}
