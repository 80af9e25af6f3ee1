package messaging

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"psichat_server/core/domain"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestEncodeValuesRoundTrip(t *testing.T) {
	alert := &domain.AlertEvent{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Emotion:      domain.EmotionDespair,
		EmotionScore: 91,
		Priority:     domain.PriorityCritical,
		Reason:       "Emoción crítica",
		CreatedAt:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	values, err := encodeValues(alert)
	if err != nil {
		t.Fatalf("encodeValues() error = %v", err)
	}

	data, err := messageData(redis.XMessage{ID: "1-0", Values: values})
	if err != nil {
		t.Fatalf("messageData() error = %v", err)
	}

	var got domain.AlertEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(&got, alert) {
		t.Errorf("decoded = %+v, want %+v", got, *alert)
	}
}

func TestMessageDataInvalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"missing", map[string]any{"other": "x"}},
		{"not a string", map[string]any{"data": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := messageData(redis.XMessage{Values: tt.values}); err == nil {
				t.Errorf("messageData() error = nil, want error")
			}
		})
	}
}

func TestReadGroupStreams(t *testing.T) {
	got := readGroupStreams([]string{"a", "b"})
	want := []string{"a", "b", ">", ">"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("readGroupStreams() = %v, want %v", got, want)
	}
}

func TestIsBusyGroup(t *testing.T) {
	if !isBusyGroup(errors.New("BUSYGROUP Consumer Group name already exists")) {
		t.Errorf("isBusyGroup(BUSYGROUP) = false")
	}
	if isBusyGroup(errors.New("ERR wrong type")) {
		t.Errorf("isBusyGroup(ERR) = true")
	}
}

func TestDeadLetterValues(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	got := deadLetterValues("alerts:tutor", "tutors", "w1", redis.XMessage{ID: "5-0", Values: map[string]any{"data": "{}"}}, at)

	want := map[string]any{
		"original_stream": "alerts:tutor",
		"original_id":     "5-0",
		"failed_at":       "2026-03-02T10:00:00Z",
		"consumer":        "w1",
		"group":           "tutors",
		"original_data":   "{}",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("deadLetterValues() = %v, want %v", got, want)
	}
	if DeadLetterStream("alerts:tutor") != "dlq:alerts:tutor" {
		t.Errorf("DeadLetterStream() = %q", DeadLetterStream("alerts:tutor"))
	}
}

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, &ConsumerConfig{})
	if c.batchSize != 10 || c.block != 5*time.Second || c.maxRetries != 3 {
		t.Errorf("defaults = (%d, %v, %d)", c.batchSize, c.block, c.maxRetries)
	}
}
