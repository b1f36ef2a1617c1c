package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"screencast-insights-go/internal/logger"
)

type client struct {
	http     *http.Client
	maxRetry time.Duration
	log      *logger.Logger
}

func newClient(timeout, maxRetry time.Duration, name string) *client {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	if maxRetry <= 0 {
		maxRetry = 45 * time.Second
	}
	l := logger.Component("provider")
	return &client{
		http:     &http.Client{Timeout: timeout},
		maxRetry: maxRetry,
		log:      &logger.Logger{Entry: l.WithField("provider", name)},
	}
}

// doJSON sends the request built by build and decodes a JSON reply into
// target. 5xx, 429 and transport errors are retried with exponential
// backoff; other 4xx replies are permanent. build is called per attempt so
// request bodies can be replayed.
func (c *client) doJSON(ctx context.Context, build func(context.Context) (*http.Request, error), target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetry

	var lastErr error
	op := func() error {
		req, err := build(ctx)
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.log.WithError(err).Warn("provider request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("provider server error: status=%d body=%s", resp.StatusCode, truncate(body))
			c.log.WithField("http_status", resp.StatusCode).Warn("provider returned retryable status")
			return lastErr
		}
		if resp.StatusCode >= 400 {
			// Permanent: don't retry on client errors
			lastErr = fmt.Errorf("provider client error: status=%d body=%s", resp.StatusCode, truncate(body))
			return backoff.Permanent(lastErr)
		}
		if len(body) == 0 {
			lastErr = fmt.Errorf("empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, truncate(body))
			return backoff.Permanent(lastErr)
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return lastErr
	}
	return nil
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
