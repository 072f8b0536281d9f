package watchcmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	watchcmder "github.com/papercomputeco/sift/cmd/sift/watch"
	"github.com/papercomputeco/sift/pkg/dotdir"
	"github.com/papercomputeco/sift/pkg/storage/sqlite"
)

const xmlBody = `<results preview="0"><result><field k="v"><value><text>a</text></value></field></result></results>`

var _ = Describe("Watch command", func() {
	var (
		workDir  string
		spoolDir string
		stderr   *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := watchcmder.NewWatchCmd()
		cmd.SetOut(GinkgoWriter)
		cmd.SetErr(stderr)
		cmd.SetArgs(args)
		return cmd.ExecuteContext(context.Background())
	}

	BeforeEach(func() {
		workDir = GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", workDir)

		origCwd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(workDir)).To(Succeed())
		DeferCleanup(os.Chdir, origCwd)

		spoolDir = filepath.Join(workDir, "spool")
		Expect(os.MkdirAll(spoolDir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(spoolDir, "a.xml"), []byte(xmlBody), 0o644)).To(Succeed())

		stderr = &bytes.Buffer{}
	})

	It("requires a directory argument", func() {
		Expect(run()).To(HaveOccurred())
	})

	It("fails without storage and without a .sift directory", func() {
		Expect(run("--once", spoolDir)).To(MatchError(ContainSubstring("no storage configured")))
	})

	It("ingests existing files into the .sift database with --once", func() {
		_, err := dotdir.NewManager().Init(workDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(run("--once", spoolDir)).To(Succeed())
		Expect(stderr.String()).To(ContainSubstring("1 files"))

		driver, err := sqlite.NewDriver(context.Background(), filepath.Join(workDir, ".sift", "sift.sqlite"))
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		n, err := driver.Count(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		stderr.Reset()
		Expect(run("--once", spoolDir)).To(Succeed())
		Expect(stderr.String()).To(ContainSubstring("0 files"))
	})

	It("re-ingests everything with --reset", func() {
		_, err := dotdir.NewManager().Init(workDir)
		Expect(err).NotTo(HaveOccurred())
		dbPath := filepath.Join(workDir, "events.sqlite")

		Expect(run("--once", "--sqlite", dbPath, spoolDir)).To(Succeed())

		stderr.Reset()
		Expect(run("--once", "--reset", "--sqlite", dbPath, spoolDir)).To(Succeed())
		Expect(stderr.String()).To(ContainSubstring("1 files"))

		driver, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		n, err := driver.Count(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})
})
