package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AngelCh415/attribution-etl/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// StatusError is a non-2xx answer from an upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string { return fmt.Sprintf("non-2xx: %d body=%s", e.Code, e.Body) }

var errDecode = errors.New("decode response")

// retryable: transport errors and 5xx/429. Other 4xx and bad bodies are final.
func retryable(err error) bool {
	if errors.Is(err, errDecode) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

func getJSON(ctx context.Context, c HTTPClient, url string, v any) error {
	if url == "" {
		return errors.New("empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

// GetJSONWithRetry retries transport failures, 429 and 5xx with
// exponential backoff and jitter; any other 4xx fails immediately.
func GetJSONWithRetry(ctx context.Context, c HTTPClient, b utils.Backoff, url string, dst any) error {
	return b.Do(ctx, func(int) error {
		err := getJSON(ctx, c, url, dst)
		if err != nil && !retryable(err) {
			return utils.Stop(err)
		}
		return err
	})
}
