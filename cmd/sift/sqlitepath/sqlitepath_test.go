package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		homeDir string
		cwdDir  string
	)

	touch := func(path string) {
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte("test"), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		homeDir = GinkgoT().TempDir()
		cwdDir = GinkgoT().TempDir()

		GinkgoT().Setenv("HOME", homeDir)
		GinkgoT().Setenv("XDG_DATA_HOME", "")

		origCwd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(cwdDir)).To(Succeed())
		DeferCleanup(os.Chdir, origCwd)
	})

	It("returns the override untouched", func() {
		path, err := ResolveSQLitePath("/tmp/custom.sqlite")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.sqlite"))
	})

	It("resolves ~/.sift/sift.sqlite when present", func() {
		dbPath := filepath.Join(homeDir, ".sift", "sift.sqlite")
		touch(dbPath)

		path, err := ResolveSQLitePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("prefers the local .sift directory over home", func() {
		touch(filepath.Join(homeDir, ".sift", "sift.sqlite"))
		touch(filepath.Join(cwdDir, ".sift", "sift.sqlite"))

		path, err := ResolveSQLitePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(".sift", "sift.sqlite")))
	})

	It("checks XDG_DATA_HOME before home", func() {
		xdg := GinkgoT().TempDir()
		GinkgoT().Setenv("XDG_DATA_HOME", xdg)
		touch(filepath.Join(homeDir, ".sift", "sift.sqlite"))
		touch(filepath.Join(xdg, "sift", "sift.db"))

		path, err := ResolveSQLitePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(xdg, "sift", "sift.db")))
	})

	It("returns ErrNotFound when nothing exists", func() {
		_, err := ResolveSQLitePath("")
		Expect(err).To(MatchError(ErrNotFound))
	})
})
