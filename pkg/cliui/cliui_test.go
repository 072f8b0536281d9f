package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/cliui"
	"github.com/papercomputeco/sift/pkg/storage"
	testutils "github.com/papercomputeco/sift/pkg/utils/test"
)

var _ = Describe("cliui", func() {
	BeforeEach(func() {
		cliui.SetColor(false)
	})

	Describe("Step", func() {
		It("prints a check mark and returns nil on success", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "decoding", func() error { return nil })).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("✓"))
			Expect(buf.String()).To(ContainSubstring("decoding"))
		})

		It("prints a cross and returns the error on failure", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")
			Expect(cliui.Step(&buf, "decoding", func() error { return boom })).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("✗"))
			Expect(buf.String()).To(ContainSubstring("decoding"))
		})

		It("skips the spinner when not writing to a terminal", func() {
			var buf bytes.Buffer
			Expect(cliui.Step(&buf, "flushing", func() error {
				time.Sleep(200 * time.Millisecond)
				return nil
			})).To(Succeed())

			Expect(strings.Count(buf.String(), "flushing")).To(Equal(1))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})
	})

	It("formats durations", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("reports a buffer as not a terminal", func() {
		var buf bytes.Buffer
		Expect(cliui.IsTerminal(&buf)).To(BeFalse())
		Expect(cliui.TerminalWidth(&buf, 80)).To(Equal(80))
	})

	It("disables colour", func() {
		Expect(cliui.ColorEnabled()).To(BeFalse())
	})

	Describe("event tables", func() {
		var records []*storage.Record

		BeforeEach(func() {
			first := testutils.NewTestRecord("1", "s", 0, testutils.NewTestEvent("host", "web01", "status", "200"))
			first.Preview = true
			second := testutils.NewTestRecord("2", "s", 1, testutils.NewTestEvent("host", "web|02", "bytes", "512"))
			second.SetIndex = 1
			records = []*storage.Record{first, second}
		})

		It("unions columns in first-seen order", func() {
			Expect(cliui.EventColumns(records)).To(Equal([]string{"host", "status", "bytes"}))
		})

		It("renders a bordered table", func() {
			out := cliui.RenderEventsTable(records)
			Expect(out).To(ContainSubstring("host"))
			Expect(out).To(ContainSubstring("web01"))
			Expect(out).To(ContainSubstring("0*"))
		})

		It("truncates long cells", func() {
			long := testutils.NewTestRecord("3", "s", 2, testutils.NewTestEvent("_raw", strings.Repeat("x", 200)))
			out := cliui.RenderEventsTable([]*storage.Record{long})
			Expect(out).To(ContainSubstring("…"))
			Expect(out).NotTo(ContainSubstring(strings.Repeat("x", 100)))
		})

		It("renders markdown with escaped pipes", func() {
			out := cliui.EventsMarkdown(records)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			Expect(lines).To(HaveLen(4))
			Expect(lines[0]).To(Equal("| set | host | status | bytes |"))
			Expect(lines[1]).To(Equal("| --- | --- | --- | --- |"))
			Expect(lines[2]).To(Equal("| 0* | web01 | 200 |  |"))
			Expect(lines[3]).To(Equal(`| 1 | web\|02 |  | 512 |`))
		})

		It("renders markdown through glamour", func() {
			out, err := cliui.RenderMarkdown(cliui.EventsMarkdown(records))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("web01"))
		})
	})
})
