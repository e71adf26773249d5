package upload

import "time"

type EventType string

const (
	EventChunkStored    EventType = "chunk_stored"
	EventMergeStarted   EventType = "merge_started"
	EventMergeCompleted EventType = "merge_completed"
	EventMergeFailed    EventType = "merge_failed"
)

// Event describes a state change of one upload session.
type Event struct {
	Type        EventType `json:"type"`
	Fingerprint string    `json:"fingerprint"`
	Index       *int      `json:"index,omitempty"`
	Path        string    `json:"path,omitempty"`
	SizeBytes   int64     `json:"sizeBytes,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   int64     `json:"createdAt"`
}

// EventPublisher receives upload events. Publish must not block.
type EventPublisher interface {
	Publish(ev *Event)
}

func newEvent(t EventType, fingerprint string) *Event {
	return &Event{
		Type:        t,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UnixMilli(),
	}
}

func publish(p EventPublisher, ev *Event) {
	if p != nil {
		p.Publish(ev)
	}
}
