package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
	"github.com/papercomputeco/sift/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/sift/pkg/utils/test"
)

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		driver, err = sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates a driver with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "test.db")

			s, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			// Verify file was created
			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reopens an existing database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

			s, err := sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Put(ctx, testutils.NewTestRecord("r1", "s", 0, testutils.NewTestEvent("a", "1")))).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewDriver(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			n, err := s.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})
	})

	Describe("Put and Get", func() {
		It("round-trips field order, arrays and segmented raw", func() {
			ev := results.NewEvent(
				results.Field{Name: "_raw", Value: results.NewValue("foo bar")},
				results.Field{Name: "tag", Value: results.NewArrayValue([]string{"b", "a"})},
				results.Field{Name: "host", Value: results.NewValue("web01")},
			).WithSegmentedRaw(`<v xml:space="preserve">foo <sg h="1">bar</sg></v>`)

			rec := testutils.NewTestRecord("r1", "main", 3, ev)
			rec.SetIndex = 2
			rec.Preview = true
			Expect(driver.Put(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Stream).To(Equal("main"))
			Expect(got.SetIndex).To(Equal(2))
			Expect(got.Seq).To(Equal(3))
			Expect(got.Preview).To(BeTrue())
			Expect(got.CreatedAt).To(BeTemporally("==", rec.CreatedAt))

			Expect(got.Event.Names()).To(Equal([]string{"_raw", "tag", "host"}))
			tag, _ := got.Event.Get("tag")
			Expect(tag.Array()).To(Equal([]string{"b", "a"}))
			Expect(got.Event.SegmentedRaw()).To(Equal(ev.SegmentedRaw()))
		})

		It("ignores a duplicate ID", func() {
			Expect(driver.Put(ctx, testutils.NewTestRecord("r1", "s", 0, testutils.NewTestEvent("a", "1")))).To(Succeed())
			Expect(driver.Put(ctx, testutils.NewTestRecord("r1", "s", 0, testutils.NewTestEvent("a", "2")))).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Event.String("a")).To(Equal("1"))
		})

		It("rejects a nil record", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilRecord))
		})

		It("returns NotFoundError for an unknown ID", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i, id := range []string{"a0", "a1", "a2"} {
				rec := testutils.NewTestRecord(id, "a", i, testutils.NewTestEvent("n", id))
				rec.Preview = i == 0
				Expect(driver.Put(ctx, rec)).To(Succeed())
			}
			Expect(driver.Put(ctx, testutils.NewTestRecord("b0", "b", 0, testutils.NewTestEvent("n", "b0")))).To(Succeed())
		})

		ids := func(records []*storage.Record) []string {
			out := make([]string, 0, len(records))
			for _, r := range records {
				out = append(out, r.ID)
			}
			return out
		}

		It("filters by stream and preview", func() {
			final := false
			records, err := driver.List(ctx, storage.Query{Stream: "a", Preview: &final})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(records)).To(Equal([]string{"a1", "a2"}))
		})

		It("accepts an offset without a limit", func() {
			records, err := driver.List(ctx, storage.Query{Offset: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(records)).To(Equal([]string{"a2", "b0"}))
		})

		It("returns an empty slice when nothing matches", func() {
			records, err := driver.List(ctx, storage.Query{Stream: "nope"})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).NotTo(BeNil())
			Expect(records).To(BeEmpty())
		})
	})

	Describe("Streams", func() {
		It("summarizes each stream", func() {
			for i := range 3 {
				rec := testutils.NewTestRecord(string(rune('a'+i)), "web", i, testutils.NewTestEvent("a", "1"))
				rec.SetIndex = i / 2
				rec.Preview = i == 0
				Expect(driver.Put(ctx, rec)).To(Succeed())
			}

			stats, err := driver.Streams(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(HaveLen(1))
			Expect(stats[0].Stream).To(Equal("web"))
			Expect(stats[0].Sets).To(Equal(2))
			Expect(stats[0].Events).To(Equal(3))
			Expect(stats[0].Previews).To(Equal(1))
			Expect(stats[0].LastSeen).To(BeTemporally("==", testutils.NewTestRecord("", "", 2, results.Event{}).CreatedAt))
		})
	})
})
