package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/messaging"
)

type channel struct {
	config  messaging.AdapterConfig
	adapter messaging.MessageAdapter
}

// Registry creates messaging adapters from configuration and fans run events out to them.
type Registry struct {
	channels []channel
	logger   *slog.Logger
}

// NewRegistry creates adapters for every enabled channel. A nil logger means slog.Default().
func NewRegistry(configs []messaging.AdapterConfig, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		adapter, err := createAdapter(cfg)
		if err != nil {
			return nil, fmt.Errorf("create adapter %q: %w", cfg.Name, err)
		}
		r.channels = append(r.channels, channel{config: cfg, adapter: adapter})
	}
	return r, nil
}

// Adapters returns all active adapters.
func (r *Registry) Adapters() []messaging.MessageAdapter {
	out := make([]messaging.MessageAdapter, 0, len(r.channels))
	for _, c := range r.channels {
		out = append(out, c.adapter)
	}
	return out
}

// Handle sends event to every channel whose filters accept it. A failing
// channel is logged and does not stop the others.
func (r *Registry) Handle(ctx context.Context, event *events.BaseEvent) error {
	for _, c := range r.channels {
		if !c.config.Accepts(event.Type) {
			continue
		}
		if err := c.adapter.Send(ctx, event); err != nil {
			r.logger.Warn("notification failed",
				"channel", c.adapter.Name(), "type", c.adapter.Type(),
				"run_id", event.AggregateID(), "event_type", event.Type, "error", err)
		}
	}
	return nil
}

// Register subscribes the registry to the dispatcher. Nothing is registered
// when no channel is enabled.
func (r *Registry) Register(d *events.EventDispatcher) {
	if len(r.channels) == 0 {
		return
	}
	d.RegisterWildcard("messaging", r.Handle)
}

func createAdapter(cfg messaging.AdapterConfig) (messaging.MessageAdapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	switch cfg.Type {
	case messaging.TypeWebhook:
		return NewWebhookAdapter(cfg), nil
	case messaging.TypeSlack:
		return NewSlackAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown adapter type: %s", cfg.Type)
	}
}
