package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/model"
)

// SlackNotifier posts selected events to one Slack channel.
type SlackNotifier struct {
	api       *slack.Client
	channelID string
	types     map[model.EventType]bool
}

// NewSlackNotifier builds a notifier from cfg. An empty EventTypes list
// forwards every event.
func NewSlackNotifier(cfg config.SlackConfig) (*SlackNotifier, error) {
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, errors.New("slack relay: missing bot token")
	}
	if strings.TrimSpace(cfg.ChannelID) == "" {
		return nil, errors.New("slack relay: missing channel id")
	}
	base := strings.TrimSpace(cfg.APIURL)
	if base == "" {
		base = "https://slack.com/api"
	}
	base = strings.TrimRight(base, "/") + "/"

	n := &SlackNotifier{
		api:       slack.New(token, slack.OptionAPIURL(base)),
		channelID: cfg.ChannelID,
		types:     map[model.EventType]bool{},
	}
	for _, t := range cfg.EventTypes {
		if t = strings.TrimSpace(t); t != "" {
			n.types[model.EventType(t)] = true
		}
	}
	return n, nil
}

func (n *SlackNotifier) Name() string { return "slack" }

// Publish posts evt when its type is selected.
func (n *SlackNotifier) Publish(ctx context.Context, evt model.HubEvent) error {
	if len(n.types) > 0 && !n.types[evt.Type] {
		return nil
	}
	text := FormatEvent(evt)
	return withRetry(3, 200*time.Millisecond, func() (bool, error) {
		_, _, err := n.api.PostMessageContext(ctx, n.channelID, slack.MsgOptionText(text, false))
		if err == nil {
			return false, nil
		}
		var rle *slack.RateLimitedError
		return errors.As(err, &rle), err
	})
}

// FormatEvent renders a one-line human summary of evt.
func FormatEvent(evt model.HubEvent) string {
	str := func(k string) string {
		if v, ok := evt.Data[k]; ok {
			return fmt.Sprint(v)
		}
		return ""
	}
	switch evt.Type {
	case model.EventProposalMerged:
		return fmt.Sprintf("[%s] proposal %s merged as thought #%s", evt.WorkspaceID, str("proposalId"), str("thoughtNumber"))
	case model.EventConsensusMarked:
		return fmt.Sprintf("[%s] consensus marked: %s (thought #%s)", evt.WorkspaceID, str("name"), str("thoughtRef"))
	case model.EventProblemClaimed:
		return fmt.Sprintf("[%s] problem %s claimed by %s on %s", evt.WorkspaceID, str("problemId"), evt.AgentID, str("branchId"))
	case model.EventProblemCreated:
		return fmt.Sprintf("[%s] new problem: %s", evt.WorkspaceID, str("title"))
	case model.EventMessagePosted:
		return fmt.Sprintf("[%s] %s on %s: %s", evt.WorkspaceID, str("author"), str("problemId"), str("content"))
	}
	return fmt.Sprintf("[%s] %s by %s", evt.WorkspaceID, evt.Type, evt.AgentID)
}

func withRetry(attempts int, baseDelay time.Duration, fn func() (retryable bool, err error)) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		retryable, err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable || i == attempts-1 {
			break
		}
		time.Sleep(baseDelay * time.Duration(1<<i))
	}
	return lastErr
}
