// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bassosimone/slogstub"
)

// logRecords collects captured log records. Appending is guarded because
// the setup broadcast logs from detached goroutines.
type logRecords struct {
	mu      sync.Mutex
	records []slog.Record
}

func (lr *logRecords) append(record slog.Record) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.records = append(lr.records, record)
}

// count returns how many captured records carry the given message.
func (lr *logRecords) count(message string) int {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	var total int
	for _, record := range lr.records {
		if record.Message == message {
			total++
		}
	}
	return total
}

// newCapturingLogger returns a logger that captures all log records into the
// returned collector. The caller can inspect the collector after exercising
// the code under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *logRecords) {
	collector := &logRecords{}
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			collector.append(record)
			return nil
		},
	}
	return slog.New(handler), collector
}

// postCall records one invocation of a [recordingPoster].
type postCall struct {
	URL  string
	Body []byte
}

// recordingPoster is a [Poster] that captures every POST and replies with
// the configured result. Safe for concurrent use.
type recordingPoster struct {
	mu     sync.Mutex
	calls  []postCall
	done   chan postCall
	result *PostResult
	err    error
}

// newRecordingPoster returns a poster replying 200 with an empty body. The
// done channel receives every call, letting tests await detached POSTs.
func newRecordingPoster() *recordingPoster {
	return &recordingPoster{
		done:   make(chan postCall, 16),
		result: &PostResult{StatusCode: 200},
	}
}

var _ Poster = &recordingPoster{}

// Post implements [Poster].
func (p *recordingPoster) Post(ctx context.Context, url string, body []byte) (*PostResult, error) {
	call := postCall{URL: url, Body: body}
	p.mu.Lock()
	p.calls = append(p.calls, call)
	result, err := p.result, p.err
	p.mu.Unlock()
	p.done <- call
	return result, err
}

// callCount returns how many POSTs were issued so far.
func (p *recordingPoster) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// addOne returns a processor incrementing an int payload.
func addOne() Processor {
	return PureProcessor(func(input any) any { return input.(int) + 1 })
}

// double returns a processor doubling an int payload.
func double() Processor {
	return PureProcessor(func(input any) any { return input.(int) * 2 })
}

// addOneFloat and doubleFloat operate on float64 payloads, the shape JSON
// numbers decode to on the connector ingress.
func addOneFloat() Processor {
	return PureProcessor(func(input any) any { return input.(float64) + 1 })
}

func doubleFloat() Processor {
	return PureProcessor(func(input any) any { return input.(float64) * 2 })
}
