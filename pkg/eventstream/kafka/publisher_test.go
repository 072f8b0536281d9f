package kafka_test

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/eventstream"
	"github.com/papercomputeco/sift/pkg/eventstream/kafka"
	"github.com/papercomputeco/sift/pkg/results"
	testutils "github.com/papercomputeco/sift/pkg/utils/test"
)

var _ = Describe("Publisher", func() {
	var (
		writer *kafka.RecordingWriter
		pub    *kafka.Publisher
		ctx    context.Context
	)

	BeforeEach(func() {
		writer = &kafka.RecordingWriter{}
		pub = kafka.NewPublisherWithWriter(writer, "sift.events")
		ctx = context.Background()
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{Topic: "t"})
		Expect(err).To(MatchError(kafka.ErrNoBrokers))
	})

	It("requires a topic", func() {
		_, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(MatchError(ContainSubstring("topic")))
	})

	It("builds a publisher without dialing", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})

	It("rejects nil events", func() {
		Expect(pub.PublishResult(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.Messages).To(BeEmpty())
	})

	It("writes one message keyed by stream", func() {
		rec := testutils.NewTestRecord("r1", "web.xml", 0, testutils.NewTestEvent("host", "web01"))
		event := eventstream.NewResultDecodedEvent(rec, results.FormatXML, false)

		Expect(pub.PublishResult(ctx, event)).To(Succeed())
		Expect(writer.Messages).To(HaveLen(1))

		msg := writer.Messages[0]
		Expect(string(msg.Key)).To(Equal("web.xml"))
		Expect(msg.Headers).To(ContainElement(HaveField("Key", "event_type")))

		var got eventstream.ResultDecodedEvent
		Expect(json.Unmarshal(msg.Value, &got)).To(Succeed())
		Expect(got.EventID).To(Equal(event.EventID))
		Expect(got.Result.String("host")).To(Equal("web01"))
	})

	It("wraps writer failures with the topic", func() {
		writer.Err = errors.New("broker down")
		rec := testutils.NewTestRecord("r1", "s", 0, testutils.NewTestEvent("a", "1"))

		err := pub.PublishResult(ctx, eventstream.NewResultDecodedEvent(rec, results.FormatJSON, false))
		Expect(err).To(MatchError(ContainSubstring("sift.events")))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.Closed).To(BeTrue())
	})
})
