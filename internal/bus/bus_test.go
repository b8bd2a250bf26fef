package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

func TestMemoryBus_PublishFansOut(t *testing.T) {
	b := NewMemoryBus(logger.New("error", "text"))
	defer b.Close()
	ctx := context.Background()

	var mu sync.Mutex
	var received []Event
	handler := func(_ context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		return nil
	}

	if err := b.Subscribe(ctx, TopicMineObservation, handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := b.Subscribe(ctx, TopicMineObservation, handler); err != nil {
		t.Fatalf("Subscribe second handler: %v", err)
	}

	event := NewEvent(TopicMineObservation, "miner", map[string]string{"keyword": "cozy mystery"})
	if err := b.Publish(ctx, TopicMineObservation, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if !b.Drain(time.Second) {
		t.Fatal("handlers did not complete in time")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Errorf("deliveries = %d, want one per subscriber", len(received))
	}
	for _, got := range received {
		if got.Type != TopicMineObservation || got.Source != "miner" {
			t.Errorf("event = %+v, want type and source preserved", got)
		}
	}
}

func TestMemoryBus_NoSubscribersIsNoop(t *testing.T) {
	b := NewMemoryBus(logger.New("error", "text"))
	defer b.Close()

	err := b.Publish(context.Background(), TopicScoreComputed, NewEvent(TopicScoreComputed, "scoring", nil))
	if err != nil {
		t.Fatalf("Publish without subscribers: %v", err)
	}
}

func TestMemoryBus_ClosedRejectsOperations(t *testing.T) {
	b := NewMemoryBus(logger.New("error", "text"))
	b.Close()
	ctx := context.Background()

	if err := b.Publish(ctx, TopicMineCompleted, Event{}); err == nil {
		t.Error("Publish on closed bus succeeded")
	}
	if err := b.Subscribe(ctx, TopicMineCompleted, func(context.Context, Event) error { return nil }); err == nil {
		t.Error("Subscribe on closed bus succeeded")
	}
}

func TestMemoryBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	b := NewMemoryBus(logger.New("error", "text"))
	defer b.Close()
	ctx := context.Background()

	if err := b.Subscribe(ctx, TopicAdsImported, func(context.Context, Event) error {
		return context.DeadlineExceeded
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := b.Publish(ctx, TopicAdsImported, NewEvent(TopicAdsImported, "import", nil)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	b.Drain(time.Second)
}

func TestParseKafkaBrokers(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"localhost:9092", []string{"localhost:9092"}},
		{"a:9092, b:9092 ,c:9092", []string{"a:9092", "b:9092", "c:9092"}},
	}
	for _, tt := range tests {
		got := ParseKafkaBrokers(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("ParseKafkaBrokers(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseKafkaBrokers(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
