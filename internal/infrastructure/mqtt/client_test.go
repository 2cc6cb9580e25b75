package mqtt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a local broker.
// Only the integration tests actually dial it.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "shades-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ pahomqtt.Message = fakeMessage{}

// recordingLogger captures log calls.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }

func (l *recordingLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got  string
		want string
	}{
		{topics.BridgeCommand("somfy", "den"), "shades/command/somfy/den"},
		{topics.BridgeAck("somfy", "den"), "shades/ack/somfy/den"},
		{topics.BridgeRequest("somfy", "req-1"), "shades/request/somfy/req-1"},
		{topics.BridgeResponse("somfy", "req-1"), "shades/response/somfy/req-1"},
		{topics.AllBridgeAcks("somfy"), "shades/ack/somfy/+"},
		{topics.AllBridgeResponses("somfy"), "shades/response/somfy/+"},
		{topics.CoreAutomationFired("Evening"), "shades/core/automation/Evening/fired"},
		{topics.SystemStatus(), "shades/system/status"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "worker"
	cfg.Auth.Password = "pw"

	opts, err := buildClientOptions(cfg)
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != "shades-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "worker" || opts.Password != "pw" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set without TLS enabled")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 8883
	cfg.TLS.Enabled = true

	opts, err := buildClientOptions(cfg)
	if err != nil {
		t.Fatalf("buildClientOptions() error = %v", err)
	}
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Errorf("TLSConfig = %+v, want MinVersion TLS1.2", opts.TLSConfig)
	}
}

func TestBuildTLSConfig_BadMaterial(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	tests := []struct {
		name string
		cfg  config.MQTTTLSConfig
	}{
		{name: "missing CA", cfg: config.MQTTTLSConfig{Enabled: true, CAFile: filepath.Join(dir, "nope.pem")}},
		{name: "CA without certificates", cfg: config.MQTTTLSConfig{Enabled: true, CAFile: garbage}},
		{name: "bad key pair", cfg: config.MQTTTLSConfig{Enabled: true, CertFile: garbage, KeyFile: garbage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTLSConfig(tt.cfg)
			if !errors.Is(err, ErrTLSConfig) {
				t.Errorf("buildTLSConfig() error = %v, want ErrTLSConfig", err)
			}
		})
	}
}

func TestConnect_BadTLSFailsBeforeDialing(t *testing.T) {
	cfg := testConfig()
	cfg.TLS = config.MQTTTLSConfig{Enabled: true, CAFile: "/nonexistent/ca.pem"}

	if _, err := Connect(context.Background(), cfg); !errors.Is(err, ErrTLSConfig) {
		t.Errorf("Connect() error = %v, want ErrTLSConfig", err)
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if c.IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
	if err := c.Publish("shades/x", []byte("{}"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe("shades/x", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestOnConnect_SkipsInitialConnection(t *testing.T) {
	c := &Client{
		client:        pahomqtt.NewClient(pahomqtt.NewClientOptions()),
		subscriptions: make(map[string]subscription),
	}
	var calls int
	c.SetOnConnect(func() { calls++ })

	c.handleConnect()
	if calls != 0 {
		t.Fatalf("callback ran %d times for the initial connection", calls)
	}
	c.handleConnect()
	c.handleConnect()
	if calls != 2 {
		t.Errorf("callback ran %d times for two reconnects, want 2", calls)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", nil, 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("shades/x", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
	big := make([]byte, maxPayloadSize+1)
	if err := c.Publish("shades/x", big, 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversized payload error = %v, want ErrPublishFailed", err)
	}
	if err := c.PublishJSON("shades/x", make(chan int), false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("unmarshalable payload error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{}

	if err := c.Subscribe("", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("shades/x", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v", err)
	}
}

func TestWrapHandler(t *testing.T) {
	logger := &recordingLogger{}
	c := &Client{}
	c.SetLogger(logger)

	var got string
	c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})(nil, fakeMessage{topic: "shades/ack/somfy/den", payload: []byte("ok")})
	if got != "shades/ack/somfy/den=ok" {
		t.Errorf("handler saw %q", got)
	}

	c.wrapHandler(func(string, []byte) error {
		return errors.New("bad payload")
	})(nil, fakeMessage{topic: "t"})
	if !logger.has("mqtt handler returned error") {
		t.Error("handler error not logged")
	}

	c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "t"})
	if !logger.has("mqtt handler panic recovered") {
		t.Error("handler panic not recovered and logged")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("shades-test")
	offline := buildOfflinePayload("shades-test")

	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, `"client_id":"shades-test"`) {
		t.Errorf("online payload = %s", online)
	}
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", offline)
	}
}
