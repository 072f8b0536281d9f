package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sift/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var (
		root string
		cwd  string
		home string
		m    *dotdir.Manager
	)

	BeforeEach(func() {
		var err error
		// EvalSymlinks keeps paths comparable on macOS, where /var is a link.
		root, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		cwd = filepath.Join(root, "project")
		home = filepath.Join(root, "home")
		Expect(os.MkdirAll(cwd, 0o755)).To(Succeed())
		Expect(os.MkdirAll(home, 0o755)).To(Succeed())

		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(cwd)).To(Succeed())
		DeferCleanup(os.Chdir, orig)
		GinkgoT().Setenv("HOME", home)

		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("finds nothing without an override, a local or a home .sift", func() {
			Expect(m.Target("")).To(BeEmpty())
		})

		It("uses ~/.sift when there is no local one", func() {
			Expect(os.Mkdir(filepath.Join(home, ".sift"), 0o755)).To(Succeed())
			Expect(m.Target("")).To(Equal(filepath.Join(home, ".sift")))
		})

		It("prefers ./.sift over ~/.sift", func() {
			Expect(os.Mkdir(filepath.Join(home, ".sift"), 0o755)).To(Succeed())
			Expect(os.Mkdir(filepath.Join(cwd, ".sift"), 0o755)).To(Succeed())
			Expect(m.Target("")).To(Equal(filepath.Join(cwd, ".sift")))
		})

		It("ignores a .sift file that is not a directory", func() {
			Expect(os.WriteFile(filepath.Join(cwd, ".sift"), nil, 0o644)).To(Succeed())
			Expect(m.Target("")).To(BeEmpty())
		})

		It("creates and returns the override over any .sift", func() {
			Expect(os.Mkdir(filepath.Join(cwd, ".sift"), 0o755)).To(Succeed())
			override := filepath.Join(root, "custom", "state")

			Expect(m.Target(override)).To(Equal(override))
			Expect(override).To(BeADirectory())
		})

		It("makes a relative override absolute", func() {
			Expect(m.Target("rel")).To(Equal(filepath.Join(cwd, "rel")))
		})
	})

	Describe("Init", func() {
		It("creates .sift under the parent and is repeatable", func() {
			dir, err := m.Init(cwd)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(cwd, ".sift")))
			Expect(dir).To(BeADirectory())

			_, err = m.Init(cwd)
			Expect(err).NotTo(HaveOccurred())
		})

		It("is then picked up by Target", func() {
			_, err := m.Init(cwd)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Target("")).To(Equal(filepath.Join(cwd, ".sift")))
		})
	})
})
