package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeResultDecoded is emitted after a decoded result event is persisted.
	EventTypeResultDecoded = "sift.result.decoded"
)

// ResultDecodedEvent is a transport-neutral event payload for one decoded
// search result.
type ResultDecodedEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	Source        EventSource   `json:"source"`
	Set           SetMeta       `json:"set"`
	RecordID      string        `json:"record_id"`
	Seq           int           `json:"seq"`
	Result        results.Event `json:"result"`
}

// EventSource identifies the stream an event was decoded from.
type EventSource struct {
	Stream string `json:"stream"`
	Format string `json:"format"`
	Export bool   `json:"export,omitempty"`
}

// SetMeta describes the result set the event belongs to.
type SetMeta struct {
	Index   int  `json:"index"`
	Preview bool `json:"preview"`
}

// NewResultDecodedEvent builds the payload announcing rec.
func NewResultDecodedEvent(rec *storage.Record, format results.Format, export bool) *ResultDecodedEvent {
	return &ResultDecodedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeResultDecoded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Stream: rec.Stream,
			Format: format.String(),
			Export: export,
		},
		Set: SetMeta{
			Index:   rec.SetIndex,
			Preview: rec.Preview,
		},
		RecordID: rec.ID,
		Seq:      rec.Seq,
		Result:   rec.Event,
	}
}
