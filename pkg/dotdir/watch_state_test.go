package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/dotdir"
)

var _ = Describe("dotdir.Manager watch state", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-watch-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns an empty state when no file exists", func() {
		state, err := m.LoadWatchState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(state.Files).To(BeEmpty())
		Expect(state.Seen("/spool/a.xml", 10)).To(BeFalse())
	})

	It("round-trips recorded files", func() {
		state := &dotdir.WatchState{}
		state.Record("/spool/a.xml", dotdir.WatchedFile{
			Stream:     "a.xml",
			Events:     3,
			Size:       128,
			IngestedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		})
		Expect(m.SaveWatchState(state, tmpDir)).To(Succeed())

		loaded, err := m.LoadWatchState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Seen("/spool/a.xml", 128)).To(BeTrue())
		Expect(loaded.Seen("/spool/a.xml", 256)).To(BeFalse())
		Expect(loaded.Files["/spool/a.xml"].Events).To(Equal(3))
	})

	It("returns error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "watch.json"), []byte("not json"), 0o600)).To(Succeed())

		state, err := m.LoadWatchState(tmpDir)
		Expect(err).To(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("clears the state and tolerates a missing file", func() {
		Expect(m.SaveWatchState(&dotdir.WatchState{}, tmpDir)).To(Succeed())
		Expect(m.ClearWatchState(tmpDir)).To(Succeed())
		Expect(m.ClearWatchState(tmpDir)).To(Succeed())

		_, err := os.Stat(filepath.Join(tmpDir, "watch.json"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("refuses to save a nil state", func() {
		Expect(m.SaveWatchState(nil, tmpDir)).To(MatchError(ContainSubstring("nil watch state")))
	})
})
