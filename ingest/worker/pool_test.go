package worker

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
	testutils "github.com/papercomputeco/sift/pkg/utils/test"
)

func testJob(stream string, seq int) Job {
	return Job{
		Record: testutils.NewTestRecord(fmt.Sprintf("%s-%d", stream, seq), stream, seq, testutils.NewTestEvent("seq", fmt.Sprint(seq))),
		Format: results.FormatXML,
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		driver    *testutils.MockDriver
		publisher *testutils.MockPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		driver = testutils.NewMockDriver()
		publisher = &testutils.MockPublisher{}
		ctx = context.Background()
	})

	newPool := func(queueSize uint) *Pool {
		wp, err := NewPool(&Config{
			Driver:    driver,
			Publisher: publisher,
			QueueSize: queueSize,
		})
		Expect(err).NotTo(HaveOccurred())
		return wp
	}

	It("requires a driver", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(MatchError(ContainSubstring("storage driver")))
	})

	It("applies defaults", func() {
		wp := newPool(0)
		defer wp.Close()

		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(cap(wp.queue)).To(Equal(int(defaultJobQueueSize)))
	})

	It("leaves the caller's config untouched", func() {
		c := &Config{Driver: driver}
		wp, err := NewPool(c)
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(c.NumWorkers).To(BeZero())
		Expect(c.Logger).To(BeNil())
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp := newPool(0)
			Expect(wp.Enqueue(testJob("s", 0))).To(BeTrue())
			wp.Close()
		})

		It("drops jobs once closed", func() {
			wp := newPool(0)
			wp.Close()
			Expect(wp.Enqueue(testJob("s", 0))).To(BeFalse())
		})
	})

	Describe("Submit", func() {
		It("fails after Close", func() {
			wp := newPool(0)
			wp.Close()
			Expect(wp.Submit(ctx, testJob("s", 0))).To(MatchError(ErrPoolClosed))
		})

		It("gives up when the context ends", func() {
			// A pool with no running workers keeps its queue full.
			wp := &Pool{config: &Config{Driver: driver}, queue: make(chan Job, 1)}
			Expect(wp.Submit(ctx, testJob("s", 0))).To(Succeed())

			short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			Expect(wp.Submit(short, testJob("s", 1))).To(MatchError(context.DeadlineExceeded))
		})
	})

	Describe("processing", func() {
		It("persists and publishes every job before Close returns", func() {
			wp := newPool(0)
			for i := range 20 {
				Expect(wp.Submit(ctx, testJob("web", i))).To(Succeed())
			}
			wp.Close()

			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(20))

			Expect(publisher.Events()).To(HaveLen(20))
			Expect(wp.Stats()).To(Equal(Stats{Persisted: 20, Published: 20}))

			records, err := driver.List(ctx, storage.Query{Stream: "web", Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].Event.String("seq")).To(Equal("0"))
		})

		It("does not publish records that failed to store", func() {
			driver.FailPut = true
			wp := newPool(0)
			Expect(wp.Submit(ctx, testJob("s", 0))).To(Succeed())
			wp.Close()

			Expect(publisher.Events()).To(BeEmpty())
			Expect(wp.Stats().Failed).To(Equal(uint64(1)))
		})

		It("keeps the record when publishing fails", func() {
			publisher.FailPublish = true
			wp := newPool(0)
			Expect(wp.Submit(ctx, testJob("s", 0))).To(Succeed())
			wp.Close()

			_, err := driver.Get(ctx, "s-0")
			Expect(err).NotTo(HaveOccurred())
			Expect(wp.Stats()).To(Equal(Stats{Persisted: 1}))
		})

		It("carries the stream format into the published event", func() {
			wp := newPool(0)
			job := testJob("s", 0)
			job.Export = true
			Expect(wp.Submit(ctx, job)).To(Succeed())
			wp.Close()

			events := publisher.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Source.Format).To(Equal("xml"))
			Expect(events[0].Source.Export).To(BeTrue())
		})
	})

	It("tolerates a second Close", func() {
		wp := newPool(0)
		wp.Close()
		wp.Close()
	})
})
