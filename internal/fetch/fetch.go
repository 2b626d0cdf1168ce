// Package fetch performs single upstream HTTP attempts and classifies their
// failures, so each acquirer's fallback chain can branch on an explicit
// result instead of inspecting raw transport errors.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Kind classifies why an upstream attempt failed.
type Kind int

const (
	// KindTimeout is a request or read deadline being exceeded. Retryable
	// against the same source with a longer budget.
	KindTimeout Kind = iota + 1
	// KindConnect is a connection-level failure (refused, reset, no route).
	KindConnect
	// KindStatus is a non-200 HTTP response.
	KindStatus
	// KindDecode is a payload that could not be read or parsed.
	KindDecode
	// KindEmpty is a well-formed response carrying no usable data.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnect:
		return "connection failure"
	case KindStatus:
		return "http error"
	case KindDecode:
		return "malformed payload"
	case KindEmpty:
		return "empty payload"
	}
	return "unknown"
}

// Failure is one classified source attempt gone wrong.
type Failure struct {
	Kind   Kind
	Status int // set when Kind is KindStatus
	Err    error
}

func (f *Failure) Error() string {
	if f.Kind == KindStatus {
		return fmt.Sprintf("%s: status %d", f.Kind, f.Status)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Classify maps a transport-level error to a failure kind.
func Classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindConnect
}

// Get performs one GET attempt. The caller bounds the attempt via ctx; any
// non-200 status is a KindStatus failure, never an implicit retry.
func Get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, *Failure) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Failure{Kind: KindConnect, Err: err}
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Failure{Kind: Classify(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Failure{
			Kind:   KindStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("status %d from %s", resp.StatusCode, url),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{Kind: Classify(err), Err: fmt.Errorf("reading response: %w", err)}
	}
	return body, nil
}
