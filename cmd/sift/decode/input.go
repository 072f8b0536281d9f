package decodecmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/sift/pkg/utils"
)

// openInput opens a file, an HTTP(S) URL or stdin for "-". It returns the
// body and a stream name for it.
func openInput(ctx context.Context, input string) (io.ReadCloser, string, error) {
	switch {
	case input == "-":
		return io.NopCloser(os.Stdin), "stdin", nil

	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, input, nil)
		if err != nil {
			return nil, "", fmt.Errorf("fetching %s: %w", input, err)
		}
		req.Header.Set("User-Agent", utils.UserAgent())

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("fetching %s: %w", input, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, "", fmt.Errorf("fetching %s: HTTP %d", input, resp.StatusCode)
		}
		return resp.Body, input, nil

	default:
		f, err := os.Open(input)
		if err != nil {
			return nil, "", fmt.Errorf("opening input: %w", err)
		}
		return f, filepath.Base(input), nil
	}
}
