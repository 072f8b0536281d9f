package api

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/sift/ingest"
	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

// DecodedEvent is one event returned by POST /v1/decode.
type DecodedEvent struct {
	SetIndex     int           `json:"set_index"`
	Preview      bool          `json:"preview"`
	Seq          int           `json:"seq"`
	Fields       results.Event `json:"fields"`
	SegmentedRaw string        `json:"segmented_raw,omitempty"`
}

// DecodeResponse is the body of POST /v1/decode.
type DecodeResponse struct {
	Summary ingest.Summary `json:"summary"`
	Events  []DecodedEvent `json:"events"`
}

// sourceFromRequest reads the decode parameters shared by /v1/decode and
// /v1/ingest.
// Query parameters:
//   - format (optional, default xml): xml or json
//   - export (optional): the body is an export stream
//   - sets (optional): "all" keeps every set, previews included
//   - stream (optional): name recorded with each event
func sourceFromRequest(c *fiber.Ctx) (ingest.Source, error) {
	src := ingest.Source{
		Name:    c.Query("stream"),
		Format:  results.FormatXML,
		Export:  c.QueryBool("export"),
		AllSets: c.Query("sets") == "all",
		Body:    bytes.NewReader(c.Body()),
	}

	if v := c.Query("format"); v != "" {
		format, err := results.ParseFormat(v)
		if err != nil {
			return src, err
		}
		src.Format = format
	}

	return src, nil
}

// decodeStatus maps a decode failure to a response status.
func decodeStatus(err error) int {
	if errors.Is(err, results.ErrMalformedInput) {
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// handleDecode decodes the request body and returns the events without
// storing them.
func (s *Server) handleDecode(c *fiber.Ctx) error {
	src, err := sourceFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	resp := DecodeResponse{Events: []DecodedEvent{}}

	decoder := ingest.New(ingest.Config{Logger: s.logger})
	summary, err := decoder.IngestFunc(c.Context(), src, func(rec *storage.Record) error {
		resp.Events = append(resp.Events, DecodedEvent{
			SetIndex:     rec.SetIndex,
			Preview:      rec.Preview,
			Seq:          rec.Seq,
			Fields:       rec.Event,
			SegmentedRaw: rec.Event.SegmentedRaw(),
		})
		return nil
	})
	if err != nil {
		return c.Status(decodeStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	resp.Summary = summary
	return c.JSON(resp)
}

// handleIngest decodes the request body and queues every event for storage
// and publishing. Events the queue has no room for are dropped and counted.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	if s.ingester == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "ingest is not configured",
		})
	}

	src, err := sourceFromRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	if src.Name == "" {
		src.Name = "api-" + uuid.NewString()
	}

	summary, err := s.ingester.Ingest(c.Context(), src)
	if err != nil {
		s.logger.Warn("ingest failed", "stream", src.Name, "error", err)
		return c.Status(decodeStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(summary)
}
