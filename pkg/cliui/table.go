package cliui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/papercomputeco/sift/pkg/storage"
	"github.com/papercomputeco/sift/pkg/utils"
)

// maxCellWidth truncates long values such as _raw.
const maxCellWidth = 60

// EventColumns returns the union of field names across records in first-seen
// order.
func EventColumns(records []*storage.Record) []string {
	seen := make(map[string]struct{})
	var columns []string
	for _, rec := range records {
		for _, name := range rec.Event.Names() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			columns = append(columns, name)
		}
	}
	return columns
}

// RenderEventsTable renders records as a bordered table with a leading set
// column. Preview sets are marked with a "*".
func RenderEventsTable(records []*storage.Record) string {
	columns := EventColumns(records)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(DimStyle).
		Headers(append([]string{"set"}, columns...)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return KeyStyle.Padding(0, 1)
			}
			return ValueStyle.Padding(0, 1)
		})

	for _, rec := range records {
		t.Row(eventRow(rec, columns, truncate)...)
	}

	return t.Render()
}

// EventsMarkdown renders records as a GitHub-flavoured markdown table.
func EventsMarkdown(records []*storage.Record) string {
	columns := EventColumns(records)

	var b strings.Builder
	header := append([]string{"set"}, columns...)
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")

	for _, rec := range records {
		row := eventRow(rec, columns, escapeMarkdown)
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}

	return b.String()
}

func eventRow(rec *storage.Record, columns []string, format func(string) string) []string {
	set := strconv.Itoa(rec.SetIndex)
	if rec.Preview {
		set += "*"
	}

	row := make([]string, 0, len(columns)+1)
	row = append(row, set)
	for _, name := range columns {
		row = append(row, format(rec.Event.String(name)))
	}
	return row
}

func truncate(s string) string {
	return utils.Truncate(strings.ReplaceAll(s, "\n", " "), maxCellWidth)
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}
