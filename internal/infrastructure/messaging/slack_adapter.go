package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/messaging"
)

// SlackAdapter sends run events to a Slack incoming webhook URL.
type SlackAdapter struct {
	config messaging.AdapterConfig
	client *http.Client
}

// NewSlackAdapter creates a Slack adapter from config.
func NewSlackAdapter(config messaging.AdapterConfig) *SlackAdapter {
	return &SlackAdapter{
		config: config,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *SlackAdapter) Name() string { return a.config.Name }
func (a *SlackAdapter) Type() string { return messaging.TypeSlack }

func (a *SlackAdapter) Send(ctx context.Context, event *events.BaseEvent) error {
	text := formatSlackMessage(event)

	payload := map[string]interface{}{
		"text": text,
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func formatSlackMessage(event *events.BaseEvent) string {
	run := event.AggregateID()
	switch event.Type {
	case events.EventTypeRunStarted:
		return fmt.Sprintf(":arrow_forward: RFP analysis started: `%s`", run)
	case events.EventTypeRunFinished:
		switch event.String(events.MetaStatus) {
		case "succeeded":
			return fmt.Sprintf(":white_check_mark: RFP analysis `%s` succeeded", run)
		case "partially_succeeded":
			return fmt.Sprintf(":large_yellow_circle: RFP analysis `%s` finished with gaps", run)
		default:
			return fmt.Sprintf(":x: RFP analysis `%s` failed", run)
		}
	case events.EventTypeStageFinished:
		return fmt.Sprintf("Stage `%s` of `%s`: %s", event.String(events.MetaStage), run, event.String(events.MetaStatus))
	case events.EventTypeRunContextDegraded:
		return fmt.Sprintf(":warning: Retrieval context unavailable for `%s`", run)
	case events.EventTypeRunPersistFailed:
		return fmt.Sprintf(":warning: Deliverable for `%s` could not be saved: %s", run, event.String(events.MetaMessage))
	default:
		return fmt.Sprintf("rfpflow event: %s", event.Type)
	}
}
