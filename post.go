// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/http2"
)

// PostResult is the outcome of a successful HTTP POST exchange.
type PostResult struct {
	// StatusCode is the HTTP response status.
	StatusCode int

	// Body is the full response body.
	Body []byte
}

// Poster is the HTTP transport primitive consumed by the callbacks: POST a
// JSON body to a URL and return the peer's response.
//
// By making the callbacks depend on an abstract implementation we allow for
// unit testing and alternative transports.
type Poster interface {
	Post(ctx context.Context, url string, body []byte) (*PostResult, error)
}

// PosterFunc adapts a function to the [Poster] interface.
type PosterFunc func(ctx context.Context, url string, body []byte) (*PostResult, error)

var _ Poster = PosterFunc(nil)

// Post implements [Poster].
func (f PosterFunc) Post(ctx context.Context, url string, body []byte) (*PostResult, error) {
	return f(ctx, url, body)
}

// NewHTTPPoster returns a new [*HTTPPoster] with default client and retry policy.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewHTTPPoster(logger SLogger) *HTTPPoster {
	return &HTTPPoster{
		Client:        &http.Client{},
		ErrClassifier: DefaultErrClassifier,
		Logger:        logger,
		MaxRetries:    2,
		TimeNow:       time.Now,
	}
}

// NewHTTP2Client returns an [*http.Client] whose transport additionally
// speaks HTTP/2 when the peer negotiates it over TLS. Assign the result to
// [HTTPPoster.Client] for fabrics fronted by h2-capable peers.
func NewHTTP2Client() (*http.Client, error) {
	txp := &http.Transport{}
	if err := http2.ConfigureTransport(txp); err != nil {
		return nil, err
	}
	return &http.Client{Transport: txp}, nil
}

// HTTPPoster implements [Poster] over [*http.Client].
//
// Transport-level failures are retried with exponential backoff; responses
// with status >= 400 fail immediately with [*HTTPStatusError] and are not
// retried. Each exchange emits postStart/postDone span events.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Post].
type HTTPPoster struct {
	// Client performs the HTTP exchanges.
	//
	// Set by [NewHTTPPoster] to a default [*http.Client].
	Client *http.Client

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewHTTPPoster] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewHTTPPoster] to the user-provided logger.
	Logger SLogger

	// MaxRetries bounds the retries after the initial attempt.
	//
	// Set by [NewHTTPPoster] to 2.
	MaxRetries uint64

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewHTTPPoster] to [time.Now].
	TimeNow func() time.Time
}

var _ Poster = &HTTPPoster{}

// Post implements [Poster].
func (p *HTTPPoster) Post(ctx context.Context, url string, body []byte) (*PostResult, error) {
	t0 := p.TimeNow()
	p.Logger.Info(
		"postStart",
		slog.Int("bodySize", len(body)),
		slog.String("url", url),
		slog.Time("t", t0),
	)

	operation := func() (*PostResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := p.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		result := &PostResult{StatusCode: resp.StatusCode, Body: respBody}
		if resp.StatusCode >= 400 {
			return result, backoff.Permanent(&HTTPStatusError{URL: url, StatusCode: resp.StatusCode})
		}
		return result, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.MaxRetries), ctx)
	result, err := backoff.RetryWithData(operation, policy)

	var statusCode int
	if result != nil {
		statusCode = result.StatusCode
	}
	p.Logger.Info(
		"postDone",
		slog.Any("err", err),
		slog.String("errClass", p.ErrClassifier.Classify(err)),
		slog.Int("statusCode", statusCode),
		slog.String("url", url),
		slog.Time("t0", t0),
		slog.Time("t", p.TimeNow()),
	)
	if err != nil {
		return result, err
	}
	return result, nil
}
