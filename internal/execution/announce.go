package execution

import (
	"time"

	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/mqtt"
)

// Publisher publishes JSON payloads. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// FiredEvent is published on shades/core/automation/{name}/fired.
type FiredEvent struct {
	FiringID   string            `json:"firing_id"`
	Automation string            `json:"automation"`
	Timestamp  time.Time         `json:"timestamp"`
	OK         bool              `json:"ok"`
	Units      map[string]string `json:"units"`
	Missing    []string          `json:"missing,omitempty"`
}

// MQTTAnnouncer publishes firing summaries on the bus.
type MQTTAnnouncer struct {
	pub    Publisher
	topics mqtt.Topics
}

// NewMQTTAnnouncer creates an announcer over pub.
func NewMQTTAnnouncer(pub Publisher) *MQTTAnnouncer {
	return &MQTTAnnouncer{pub: pub}
}

// Announce publishes r. The message is retained so late subscribers see
// the most recent firing of each automation.
func (a *MQTTAnnouncer) Announce(r Report) error {
	ev := FiredEvent{
		FiringID:   r.FiringID,
		Automation: r.Automation,
		Timestamp:  r.StartedAt.Add(r.Duration),
		OK:         r.OK(),
		Units:      make(map[string]string, len(r.Units)),
	}
	for _, u := range r.Units {
		ev.Units[u.Unit] = string(u.Status)
		ev.Missing = append(ev.Missing, u.Missing...)
	}
	return a.pub.PublishJSON(a.topics.CoreAutomationFired(r.Automation), ev, true)
}
