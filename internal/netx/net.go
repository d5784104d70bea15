// Package netx contains small HTTP byte-transfer helpers used around the
// object-storage surface.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DownloadFromSignedURL fetches the bytes behind a time-limited signed URL.
// Used as the display fallback when a photo blob is no longer cached
// locally.
func DownloadFromSignedURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}
	return io.ReadAll(resp.Body)
}
