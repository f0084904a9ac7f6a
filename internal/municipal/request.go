package municipal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// Observer is told about every outbound call; err is nil on success.
type Observer func(source string, err error, elapsed time.Duration)

// requester performs one rate-limited, time-bounded JSON call.
type requester struct {
	source  string
	client  *http.Client
	limiter *rate.Limiter
	observe Observer
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (r *requester) do(ctx context.Context, timeout time.Duration, method, url string, header http.Header, body any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := r.roundTrip(ctx, timeout, method, url, header, body)
	if r.observe != nil {
		r.observe(r.source, err, time.Since(start))
	}
	return raw, err
}

func (r *requester) roundTrip(ctx context.Context, timeout time.Duration, method, url string, header http.Header, body any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout after %s", timeout)
		}
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout after %s", timeout)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(payload) {
		return nil, errors.New("malformed JSON response")
	}
	return json.RawMessage(payload), nil
}
