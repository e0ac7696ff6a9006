package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

// fetch GETs url with the configured user agent. accept may reject a
// response by its content type before the body is read.
func fetch(ctx context.Context, env *Env, url string, timeout time.Duration, accept func(contentType string) error) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", env.UserAgent)

	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	if accept != nil {
		if err := accept(resp.Header.Get("Content-Type")); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func acceptHTML(contentType string) error {
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return fmt.Errorf("content type is not HTML: %s", contentType)
	}
	return nil
}
