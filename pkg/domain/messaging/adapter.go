// Package messaging defines the notification channels run events are sent to.
package messaging

import (
	"context"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
)

// Adapter types.
const (
	TypeWebhook = "webhook"
	TypeSlack   = "slack"
)

// DefaultEventFilters are the events a channel receives when it lists none.
var DefaultEventFilters = []string{events.EventTypeRunFinished, events.EventTypeRunPersistFailed}

// MessageAdapter sends run notifications to an external channel.
type MessageAdapter interface {
	Send(ctx context.Context, event *events.BaseEvent) error
	Name() string
	Type() string
}

// AdapterConfig defines one notification channel.
type AdapterConfig struct {
	Name         string   `yaml:"name" json:"name"`
	Type         string   `yaml:"type" json:"type"`
	URL          string   `yaml:"url" json:"url"`
	Secret       string   `yaml:"secret,omitempty" json:"secret,omitempty"`
	EventFilters []string `yaml:"event_filters,omitempty" json:"event_filters,omitempty"`
	Enabled      bool     `yaml:"enabled" json:"enabled"`
}

// Accepts reports whether the channel wants events of eventType.
func (c AdapterConfig) Accepts(eventType string) bool {
	filters := c.EventFilters
	if len(filters) == 0 {
		filters = DefaultEventFilters
	}
	for _, f := range filters {
		if f == "*" || f == eventType {
			return true
		}
	}
	return false
}
