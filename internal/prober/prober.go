// Package prober runs bounded-concurrency HTTP liveness checks against a
// batch of local SOCKS5 listeners, one per descriptor under test.
package prober

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/txthinking/socks5"

	"github.com/draco-tlw/rayzor/internal/batch"
)

const (
	// maxErrMsgLen truncates a raw error message to keep the result sink
	// readable; it mirrors the original tool's str(e)[:30] behavior.
	maxErrMsgLen = 30
)

// Result is one descriptor's probe outcome.
type Result struct {
	Link      string
	LatencyMS int // -1 when the probe failed
	Success   bool
	Message   string
}

// Options configures a probing run.
type Options struct {
	TestURL     string
	Timeout     time.Duration
	Concurrency int
}

// Probe runs one HTTP GET through the SOCKS5 listener at 127.0.0.1:port and
// classifies the outcome.
func Probe(ctx context.Context, link string, port int, opts Options) Result {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := socks5.NewClient(fmt.Sprintf("127.0.0.1:%d", port), "", "", 0, int(opts.Timeout.Seconds()))
	if err != nil {
		return failResult(link, truncate(err.Error()))
	}

	httpClient := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return client.Dial(network, addr)
			},
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.TestURL, nil)
	if err != nil {
		return failResult(link, truncate(err.Error()))
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return failResult(link, "Timeout")
		}
		return failResult(link, truncate(err.Error()))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return Result{Link: link, LatencyMS: int(latency), Success: true, Message: "OK"}
	}
	return failResult(link, fmt.Sprintf("Status %d", resp.StatusCode))
}

func failResult(link, msg string) Result {
	return Result{Link: link, LatencyMS: -1, Success: false, Message: msg}
}

func truncate(s string) string {
	if len(s) > maxErrMsgLen {
		return s[:maxErrMsgLen]
	}
	return s
}

// ProbeBatch probes every slot in b concurrently, bounded by
// opts.Concurrency, and returns one Result per slot in slot order.
func ProbeBatch(ctx context.Context, b batch.Batch, opts Options) []Result {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]Result, len(b.Slots))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, slot := range b.Slots {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, link string, port int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					results[i] = failResult(link, fmt.Sprintf("panic: %v", r))
				}
			}()
			results[i] = Probe(ctx, link, port, opts)
		}(i, slot.Descriptor.Link, slot.Port)
	}

	wg.Wait()
	return results
}
