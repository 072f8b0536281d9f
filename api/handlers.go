package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/sift/ingest/worker"
	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EventResponse is a stored event.
type EventResponse struct {
	ID           string        `json:"id"`
	Stream       string        `json:"stream"`
	SetIndex     int           `json:"set_index"`
	Preview      bool          `json:"preview"`
	Seq          int           `json:"seq"`
	CreatedAt    time.Time     `json:"created_at"`
	Fields       results.Event `json:"fields"`
	SegmentedRaw string        `json:"segmented_raw,omitempty"`
}

// EventListResponse is a page of stored events.
type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Count  int             `json:"count"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// StatsResponse summarizes the store.
type StatsResponse struct {
	TotalEvents int                   `json:"total_events"`
	Streams     []storage.StreamStats `json:"streams"`
	Ingest      *worker.Stats         `json:"ingest,omitempty"`
}

func newEventResponse(rec *storage.Record) EventResponse {
	return EventResponse{
		ID:           rec.ID,
		Stream:       rec.Stream,
		SetIndex:     rec.SetIndex,
		Preview:      rec.Preview,
		Seq:          rec.Seq,
		CreatedAt:    rec.CreatedAt,
		Fields:       rec.Event,
		SegmentedRaw: rec.Event.SegmentedRaw(),
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns per-stream statistics.
func (s *Server) handleStats(c *fiber.Ctx) error {
	ctx := c.Context()

	total, err := s.storer.Count(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to count events"})
	}

	streams, err := s.storer.Streams(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to summarize streams"})
	}

	resp := StatsResponse{
		TotalEvents: total,
		Streams:     streams,
	}
	if s.pool != nil {
		stats := s.pool.Stats()
		resp.Ingest = &stats
	}

	return c.JSON(resp)
}

// handleGetEvent returns a single event by its ID.
func (s *Server) handleGetEvent(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	rec, err := s.storer.Get(c.Context(), id)
	if storage.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "event not found"})
	}
	if err != nil {
		s.logger.Error("failed to get event", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get event"})
	}

	return c.JSON(newEventResponse(rec))
}

// handleListEvents handles GET /v1/events requests.
// Query parameters:
//   - stream (optional): only events of this stream
//   - preview (optional): true or false to filter by set kind
//   - limit (optional, default 100, max 1000)
//   - offset (optional, default 0)
func (s *Server) handleListEvents(c *fiber.Ctx) error {
	q := storage.Query{
		Stream: c.Query("stream"),
		Limit:  defaultListLimit,
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxListLimit {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "limit must be an integer between 1 and " + strconv.Itoa(maxListLimit),
			})
		}
		q.Limit = limit
	}

	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "offset must be a non-negative integer"})
		}
		q.Offset = offset
	}

	if v := c.Query("preview"); v != "" {
		preview, err := strconv.ParseBool(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "preview must be true or false"})
		}
		q.Preview = &preview
	}

	records, err := s.storer.List(c.Context(), q)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list events"})
	}

	events := make([]EventResponse, 0, len(records))
	for _, rec := range records {
		events = append(events, newEventResponse(rec))
	}

	return c.JSON(EventListResponse{
		Events: events,
		Count:  len(events),
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}
