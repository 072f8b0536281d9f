package mcp

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/logger"
	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/sift/pkg/utils/test"
)

var _ = Describe("Event tools", func() {
	var (
		server *Server
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		ctx = context.Background()

		var err error
		server, err = NewServer(Config{Driver: driver, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("decode_results", func() {
		It("decodes a JSON document keeping field order", func() {
			result, output, err := server.handleDecode(ctx, nil, DecodeInput{
				Data:   `{"preview":false,"results":[{"b":"2","a":["x","y"]}]}`,
				Format: "json",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(Equal(1))
			Expect(output.Events[0].Fields).To(Equal([]Field{
				{Name: "b", Values: []string{"2"}},
				{Name: "a", Values: []string{"x", "y"}},
			}))
		})

		It("defaults to XML", func() {
			_, output, err := server.handleDecode(ctx, nil, DecodeInput{
				Data: `<results preview="0"><result><field k="h"><value><text>web</text></value></field></result></results>`,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Count).To(Equal(1))
		})

		It("truncates at the limit", func() {
			_, output, err := server.handleDecode(ctx, nil, DecodeInput{
				Data:   `[{"a":"1"},{"a":"2"},{"a":"3"}]`,
				Format: "json",
				Limit:  2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Count).To(Equal(2))
			Expect(output.Truncated).To(BeTrue())
		})

		It("reports an unknown format as a tool error", func() {
			result, _, err := server.handleDecode(ctx, nil, DecodeInput{Data: "x", Format: "csv"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})

		It("reports malformed input as a tool error", func() {
			result, _, err := server.handleDecode(ctx, nil, DecodeInput{Data: `"text"`, Format: "json"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})
	})

	Describe("list_events", func() {
		BeforeEach(func() {
			Expect(driver.Put(ctx, testutils.NewTestRecord("a0", "a", 0, testutils.NewTestEvent("n", "0")))).To(Succeed())
			Expect(driver.Put(ctx, testutils.NewTestRecord("a1", "a", 1, testutils.NewTestEvent("n", "1")))).To(Succeed())
			Expect(driver.Put(ctx, testutils.NewTestRecord("b0", "b", 0, testutils.NewTestEvent("n", "2")))).To(Succeed())
		})

		It("lists stored events of a stream", func() {
			_, output, err := server.handleListEvents(ctx, nil, ListEventsInput{Stream: "a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Count).To(Equal(2))
			Expect(output.Events[0].ID).To(Equal("a0"))
			Expect(output.Events[1].Stream).To(Equal("a"))
		})

		It("pages with limit and offset", func() {
			_, output, err := server.handleListEvents(ctx, nil, ListEventsInput{Limit: 1, Offset: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(output.Events).To(HaveLen(1))
			Expect(output.Events[0].ID).To(Equal("b0"))
		})
	})

	It("maps empty arrays to an empty value list", func() {
		rec := testutils.NewTestRecord("x", "s", 0, results.NewEvent(results.Field{Name: "e", Value: results.NewArrayValue(nil)}))
		ev := toEvent(rec, true)
		Expect(ev.Fields[0].Values).To(BeEmpty())
		Expect(ev.Fields[0].Values).NotTo(BeNil())
	})
})
