package hub

import (
	"fmt"
	"time"

	"github.com/KafClaw/thoughthub/internal/bus"
	"github.com/KafClaw/thoughthub/internal/model"
	"github.com/KafClaw/thoughthub/internal/waiter"
)

func (h *Hub) getChannel(wsID, problemID string) (*model.Channel, error) {
	ch, err := h.store.GetChannel(wsID, problemID)
	return lookup(ch, err, "Channel", problemID)
}

func (h *Hub) post(c *call, author string) (*model.ChannelMessage, error) {
	problemID, err := c.args.Required("problemId")
	if err != nil {
		return nil, err
	}
	content, err := c.args.Required("content")
	if err != nil {
		return nil, err
	}
	ch, err := h.getChannel(c.ws.ID, problemID)
	if err != nil {
		return nil, err
	}
	ts := h.clock()
	if n := len(ch.Messages); n > 0 && !ts.After(ch.Messages[n-1].Timestamp) {
		ts = ch.Messages[n-1].Timestamp.Add(time.Nanosecond)
	}
	msg := model.ChannelMessage{
		ID:        h.newID(),
		AgentID:   author,
		Content:   content,
		Timestamp: ts,
		Ref:       c.args.String("ref"),
	}
	ch.Messages = append(ch.Messages, msg)
	if err := h.store.SaveChannel(ch); err != nil {
		return nil, fmt.Errorf("save channel: %w", err)
	}
	c.publish(bus.ChannelURI(c.ws.ID, problemID), msg)
	c.event(c.ws.ID, model.EventMessagePosted, map[string]any{
		"problemId": problemID,
		"messageId": msg.ID,
		"author":    author,
		"content":   content,
	})
	return &msg, nil
}

func (h *Hub) opPostMessage(c *call) (any, error) {
	return h.post(c, c.agentID)
}

func (h *Hub) opPostSystemMessage(c *call) (any, error) {
	return h.post(c, model.SystemAgentID)
}

// ChannelPage is a window of channel messages.
type ChannelPage struct {
	ProblemID string                 `json:"problemId"`
	Messages  []model.ChannelMessage `json:"messages"`
	Total     int                    `json:"total"`
}

func (h *Hub) opReadChannel(c *call) (any, error) {
	problemID, err := c.args.Required("problemId")
	if err != nil {
		return nil, err
	}
	since, hasSince, err := c.args.Time("since")
	if err != nil {
		return nil, err
	}
	limit, _, err := c.args.Int("limit")
	if err != nil {
		return nil, err
	}
	ch, err := h.getChannel(c.ws.ID, problemID)
	if err != nil {
		return nil, err
	}
	msgs := make([]model.ChannelMessage, 0, len(ch.Messages))
	for _, m := range ch.Messages {
		if !hasSince || m.Timestamp.After(since) {
			msgs = append(msgs, m)
		}
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return ChannelPage{ProblemID: problemID, Messages: msgs, Total: len(ch.Messages)}, nil
}

// opWait runs without the workspace lock; it only reads the waiter set.
func (h *Hub) opWait(c *call) (any, error) {
	secs, _, err := c.args.Float("timeout")
	if err != nil {
		return nil, err
	}
	var types []model.EventType
	for _, t := range c.args.Strings("types") {
		types = append(types, model.EventType(t))
	}
	if limit := h.waiter.Max().Seconds(); secs > limit {
		secs = limit
	}
	timeout := time.Duration(secs * float64(time.Second))
	return h.waiter.Wait(c.ctx, waiter.Filter{WorkspaceID: c.ws.ID, Types: types}, timeout)
}
