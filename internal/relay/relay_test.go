package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/model"
)

type fakePublisher struct {
	mu   sync.Mutex
	got  []model.HubEvent
	fail bool
}

func (f *fakePublisher) Name() string { return "fake" }

func (f *fakePublisher) Publish(_ context.Context, evt model.HubEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, evt)
	if f.fail {
		return errors.New("boom")
	}
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func TestRelayDeliversToEveryPublisher(t *testing.T) {
	ok, broken := &fakePublisher{}, &fakePublisher{fail: true}
	r := New(8, broken, ok)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for i := 0; i < 3; i++ {
		r.Deliver(model.HubEvent{Type: model.EventThoughtAdded, WorkspaceID: "w1"})
	}
	deadline := time.Now().Add(2 * time.Second)
	for ok.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("publisher received %d events", ok.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if broken.count() != 3 {
		t.Fatalf("failing publisher should still see every event, got %d", broken.count())
	}
}

func TestRelayDropsWhenFull(t *testing.T) {
	r := New(1)
	r.Deliver(model.HubEvent{})
	r.Deliver(model.HubEvent{})
	if r.Dropped() != 1 {
		t.Fatalf("expected one dropped event, got %d", r.Dropped())
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherTopicAndKey(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, prefix: "hub"}
	evt := model.HubEvent{ID: "e1", Type: model.EventProposalMerged, WorkspaceID: "w1", Timestamp: time.Now()}
	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != "hub.w1.events" || string(msg.Key) != "w1" {
		t.Fatalf("unexpected routing: topic=%s key=%s", msg.Topic, msg.Key)
	}
	var decoded model.HubEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil || decoded.Type != model.EventProposalMerged {
		t.Fatalf("unexpected payload: %s %v", msg.Value, err)
	}
	if len(msg.Headers) == 0 || msg.Headers[0].Key != "event_type" {
		t.Fatalf("missing headers: %+v", msg.Headers)
	}
	_ = p.Close()
	if !w.closed {
		t.Fatal("writer not closed")
	}
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaPublisher(config.KafkaConfig{Brokers: " , "}); err == nil {
		t.Fatal("expected error without brokers")
	}
	p, err := NewKafkaPublisher(config.KafkaConfig{Brokers: "localhost:9092", TopicPrefix: "hub"})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	_ = p.Close()
}

func TestSlackNotifierPostsSelectedEvents(t *testing.T) {
	var mu sync.Mutex
	var posted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		if r.FormValue("channel") != "C123" {
			t.Errorf("channel=%q", r.FormValue("channel"))
		}
		mu.Lock()
		posted = append(posted, r.FormValue("text"))
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1"})
	}))
	defer srv.Close()

	n, err := NewSlackNotifier(config.SlackConfig{
		BotToken:   "xoxb-test",
		ChannelID:  "C123",
		APIURL:     srv.URL,
		EventTypes: []string{"proposal_merged"},
	})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	ctx := context.Background()
	merged := model.HubEvent{Type: model.EventProposalMerged, WorkspaceID: "w1", Data: map[string]any{"proposalId": "r1", "thoughtNumber": 4}}
	if err := n.Publish(ctx, merged); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := n.Publish(ctx, model.HubEvent{Type: model.EventThoughtAdded, WorkspaceID: "w1"}); err != nil {
		t.Fatalf("filtered publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(posted) != 1 || posted[0] != "[w1] proposal r1 merged as thought #4" {
		t.Fatalf("unexpected posts: %q", posted)
	}
}

func TestNewSlackNotifierValidates(t *testing.T) {
	if _, err := NewSlackNotifier(config.SlackConfig{ChannelID: "C1"}); err == nil {
		t.Fatal("expected missing token error")
	}
	if _, err := NewSlackNotifier(config.SlackConfig{BotToken: "x"}); err == nil {
		t.Fatal("expected missing channel error")
	}
}
