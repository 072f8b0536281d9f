package servecmder_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/sift/cmd/sift/serve"
)

func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	defer l.Close()
	return l.Addr().String()
}

var _ = Describe("Serve command", func() {
	var workDir string

	BeforeEach(func() {
		workDir = GinkgoT().TempDir()
		GinkgoT().Setenv("HOME", workDir)
		GinkgoT().Setenv("XDG_DATA_HOME", "")

		origCwd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(workDir)).To(Succeed())
		DeferCleanup(os.Chdir, origCwd)
	})

	start := func(args ...string) (string, context.CancelFunc, chan error) {
		addr := freeAddr()

		cmd := servecmder.NewServeCmd()
		cmd.SetOut(GinkgoWriter)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs(append([]string{"--listen", addr}, args...))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- cmd.ExecuteContext(ctx) }()

		base := "http://" + addr
		Eventually(func() error {
			resp, err := http.Get(base + "/ping")
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status %d", resp.StatusCode)
			}
			return nil
		}).WithTimeout(5 * time.Second).Should(Succeed())

		return base, cancel, done
	}

	It("rejects positional arguments", func() {
		cmd := servecmder.NewServeCmd()
		cmd.SetOut(GinkgoWriter)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs([]string{"extra"})
		Expect(cmd.Execute()).To(HaveOccurred())
	})

	It("serves the API until the context is cancelled", func() {
		base, cancel, done := start()

		resp, err := http.Post(base+"/v1/ingest?stream=s", "application/xml", strings.NewReader(
			`<results preview="0"><result><field k="v"><value><text>a</text></value></field></result></results>`,
		))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

		Eventually(func() string {
			resp, err := http.Get(base + "/v1/events?stream=s")
			if err != nil {
				return ""
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return string(body)
		}).Should(ContainSubstring(`"v":"a"`))

		cancel()
		Eventually(done).WithTimeout(5 * time.Second).Should(Receive(BeNil()))
	})

	It("ingests spool files while serving", func() {
		spoolDir := filepath.Join(workDir, "spool")
		Expect(os.MkdirAll(spoolDir, 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(spoolDir, "r.json"), []byte(`[{"v":"spooled"}]`), 0o644)).To(Succeed())

		base, cancel, done := start("--spool", spoolDir)
		defer func() {
			cancel()
			Eventually(done).WithTimeout(5 * time.Second).Should(Receive())
		}()

		Eventually(func() string {
			resp, err := http.Get(base + "/v1/events?stream=r.json")
			if err != nil {
				return ""
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return string(body)
		}).Should(ContainSubstring("spooled"))
	})

	It("also writes JSON logs to --log-file", func() {
		logPath := filepath.Join(workDir, "serve.log")

		_, cancel, done := start("--log-file", logPath)
		cancel()
		Eventually(done).WithTimeout(5 * time.Second).Should(Receive(BeNil()))

		data, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"no sift database found, keeping events in memory"`))
	})

	It("fails when the log file cannot be opened", func() {
		cmd := servecmder.NewServeCmd()
		cmd.SetOut(GinkgoWriter)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs([]string{"--listen", freeAddr(), "--log-file", filepath.Join(workDir, "missing", "serve.log")})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("opening log file")))
	})

	It("fails for a missing spool directory", func() {
		cmd := servecmder.NewServeCmd()
		cmd.SetOut(GinkgoWriter)
		cmd.SetErr(GinkgoWriter)
		cmd.SetArgs([]string{"--listen", freeAddr(), "--spool", filepath.Join(workDir, "missing")})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("spool dir")))
	})
})
