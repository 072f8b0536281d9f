package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/sift/ingest"
	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

var (
	decodeToolName    = "decode_results"
	decodeDescription = "Decode a search results document (XML, JSON, or JSON export rows) into events. " +
		"By default leading preview sets of export streams are skipped and consecutive final sets are concatenated."

	listEventsToolName    = "list_events"
	listEventsDescription = "List stored search result events, optionally filtered by stream, in stream order."

	defaultToolLimit = 100

	errLimitReached = errors.New("limit reached")
)

// DecodeInput represents the input arguments for the decode tool.
type DecodeInput struct {
	Data    string `json:"data" jsonschema:"the raw results document"`
	Format  string `json:"format,omitempty" jsonschema:"xml or json (default: xml)"`
	Export  bool   `json:"export,omitempty" jsonschema:"treat the document as an export stream"`
	AllSets bool   `json:"all_sets,omitempty" jsonschema:"return every result set, previews included"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of events to return (default: 100)"`
}

// ListEventsInput represents the input arguments for the list tool.
type ListEventsInput struct {
	Stream string `json:"stream,omitempty" jsonschema:"only return events of this stream"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of events to return (default: 100)"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of events to skip"`
}

// Field is one decoded field. Single values have exactly one entry.
type Field struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Event is a decoded event in field order.
type Event struct {
	ID       string  `json:"id,omitempty"`
	Stream   string  `json:"stream,omitempty"`
	SetIndex int     `json:"set_index"`
	Preview  bool    `json:"preview"`
	Seq      int     `json:"seq"`
	Fields   []Field `json:"fields"`
}

// EventsOutput represents the output of both tools.
type EventsOutput struct {
	Events    []Event `json:"events"`
	Count     int     `json:"count"`
	Truncated bool    `json:"truncated,omitempty"`
}

func (s *Server) handleDecode(ctx context.Context, _ *mcp.CallToolRequest, input DecodeInput) (*mcp.CallToolResult, EventsOutput, error) {
	format := results.FormatXML
	if input.Format != "" {
		parsed, err := results.ParseFormat(input.Format)
		if err != nil {
			return errorResult(err.Error()), EventsOutput{}, nil
		}
		format = parsed
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}

	s.config.Logger.Debug("MCP decode request",
		"format", format.String(),
		"bytes", len(input.Data),
		"all_sets", input.AllSets,
	)

	output := EventsOutput{Events: []Event{}}

	ing := ingest.New(ingest.Config{Logger: s.config.Logger})
	_, err := ing.IngestFunc(ctx, ingest.Source{
		Name:    "mcp",
		Format:  format,
		Export:  input.Export,
		AllSets: input.AllSets,
		Body:    strings.NewReader(input.Data),
	}, func(rec *storage.Record) error {
		if len(output.Events) == limit {
			output.Truncated = true
			return errLimitReached
		}
		output.Events = append(output.Events, toEvent(rec, false))
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		s.config.Logger.Error("failed to decode results", "error", err)
		return errorResult(fmt.Sprintf("Failed to decode results: %v", err)), EventsOutput{}, nil
	}

	output.Count = len(output.Events)
	return textResult(output)
}

func (s *Server) handleListEvents(ctx context.Context, _ *mcp.CallToolRequest, input ListEventsInput) (*mcp.CallToolResult, EventsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}

	records, err := s.config.Driver.List(ctx, storage.Query{
		Stream: input.Stream,
		Limit:  limit,
		Offset: input.Offset,
	})
	if err != nil {
		s.config.Logger.Error("failed to list events", "error", err)
		return errorResult(fmt.Sprintf("Failed to list events: %v", err)), EventsOutput{}, nil
	}

	output := EventsOutput{Events: make([]Event, 0, len(records))}
	for _, rec := range records {
		output.Events = append(output.Events, toEvent(rec, true))
	}
	output.Count = len(output.Events)

	return textResult(output)
}

// textResult also returns the structured output serialized as JSON text for
// clients that ignore structured content.
func textResult(output EventsOutput) (*mcp.CallToolResult, EventsOutput, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), EventsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toEvent(rec *storage.Record, stored bool) Event {
	ev := Event{
		SetIndex: rec.SetIndex,
		Preview:  rec.Preview,
		Seq:      rec.Seq,
		Fields:   make([]Field, 0, rec.Event.Len()),
	}
	if stored {
		ev.ID = rec.ID
		ev.Stream = rec.Stream
	}

	for name, value := range rec.Event.All() {
		values := []string{value.String()}
		if value.IsArray() {
			values = value.Array()
		}
		if values == nil {
			values = []string{}
		}
		ev.Fields = append(ev.Fields, Field{Name: name, Values: values})
	}

	return ev
}
