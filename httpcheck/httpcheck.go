// Package httpcheck verifies that a service generated by an agent run is up
// and answering.
package httpcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"
)

// Defaults for request and polling timeouts.
const (
	RequestTimeout = 5 * time.Second
	ProbeTimeout   = time.Second
	WaitTimeout    = 30 * time.Second
	WaitInterval   = 500 * time.Millisecond
)

// Response is a decoded HTTP response. Body holds the decoded JSON value for
// JSON responses and the body text otherwise. A transport failure yields
// Status 0 and an empty string Body.
type Response struct {
	Status int
	Body   any
}

// OK reports whether Status is 2xx.
func (r Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

var client = &http.Client{}

// Get issues a GET request to url.
func Get(ctx context.Context, url string) Response {
	return do(ctx, http.MethodGet, url, nil)
}

// Post issues a POST request with body encoded as JSON.
func Post(ctx context.Context, url string, body any) Response {
	data, err := json.Marshal(body)
	if err != nil {
		return Response{Body: ""}
	}
	return do(ctx, http.MethodPost, url, data)
}

func do(ctx context.Context, method, url string, body []byte) Response {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return Response{Body: ""}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{Body: ""}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Body: ""}
	}
	out := Response{Status: resp.StatusCode, Body: string(raw)}
	if isJSON(resp.Header.Get("Content-Type")) {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return Response{Body: ""}
		}
		out.Body = v
	}
	return out
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

// WaitForServer polls url until it answers with a status below 500 or
// timeout elapses. Timeout and interval values <= 0 use WaitTimeout and
// WaitInterval.
func WaitForServer(ctx context.Context, url string, timeout, interval time.Duration) bool {
	if timeout <= 0 {
		timeout = WaitTimeout
	}
	if interval <= 0 {
		interval = WaitInterval
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if probe(ctx, url) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func probe(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode < 500
}
