// Package pipeline wires the link parser, fingerprinter, deduplicator,
// filter, batch planner, core supervisor, prober, retry controller, and
// result sink into one end-to-end run.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/draco-tlw/rayzor/internal/batch"
	"github.com/draco-tlw/rayzor/internal/dedup"
	"github.com/draco-tlw/rayzor/internal/descriptor"
	"github.com/draco-tlw/rayzor/internal/filter"
	"github.com/draco-tlw/rayzor/internal/linkparser"
	"github.com/draco-tlw/rayzor/internal/prober"
	"github.com/draco-tlw/rayzor/internal/retry"
	"github.com/draco-tlw/rayzor/internal/settings"
	"github.com/draco-tlw/rayzor/internal/sink"
	"github.com/draco-tlw/rayzor/internal/supervisor"
)

// Run executes one full latency-testing pass over the links in
// s.InputFile and writes results to s.ResultsFile/s.ActiveLinksFile.
func Run(ctx context.Context, s *settings.Settings, logger *zap.Logger) error {
	links, err := readLines(s.InputFile)
	if err != nil {
		return fmt.Errorf("read input file %s: %w", s.InputFile, err)
	}

	deduped, report := dedup.Dedupe(links)
	logger.Info("deduplicated links",
		zap.Int("input", report.InputCount),
		zap.Int("kept", report.KeptCount),
		zap.Int("dropped", report.DroppedCount))

	descriptors := parseAll(deduped, logger)
	accepted := filter.Filter(descriptors)
	logger.Info("filtered descriptors", zap.Int("accepted", len(accepted)), zap.Int("rejected", len(descriptors)-len(accepted)))

	resultSink, err := sink.New(s.ResultsFile, s.ActiveLinksFile)
	if err != nil {
		return fmt.Errorf("initialize result sink: %w", err)
	}

	sup := supervisor.New(s.CorePath, s.WorkDir, logger)

	retry.Run(accepted, s.MaxRetries, func(round int, pending []descriptor.LinkedDescriptor) map[string]bool {
		logger.Info("retry round starting", zap.Int("round", round), zap.Int("pending", len(pending)))
		return runRound(ctx, sup, resultSink, pending, s, logger)
	})

	if err := resultSink.FinalizeSort(); err != nil {
		return fmt.Errorf("finalize results: %w", err)
	}
	return nil
}

// runRound tests every batch of pending descriptors once and reports, by
// raw link, which ones succeeded.
func runRound(ctx context.Context, sup *supervisor.Supervisor, resultSink *sink.Sink, pending []descriptor.LinkedDescriptor, s *settings.Settings, logger *zap.Logger) map[string]bool {
	outcomes := make(map[string]bool, len(pending))
	batches := batch.Plan(pending, s.BatchSize, s.BasePort)

	opts := prober.Options{
		TestURL:     s.TestURL,
		Timeout:     time.Duration(s.TimeoutSeconds) * time.Second,
		Concurrency: s.MaxWorkers,
	}

	for _, b := range batches {
		results := runBatch(ctx, sup, b, opts, logger)
		for _, r := range results {
			outcomes[r.Link] = r.Success
		}
		if err := resultSink.AppendSuccesses(results); err != nil {
			logger.Error("failed to append batch results", zap.Int("batch", b.Number), zap.Error(err))
		}
	}
	return outcomes
}

// runBatch starts the core for one batch, probes every slot, tears the
// core down, and reports a synthetic "Batch Failed" result per slot if the
// core never became ready.
func runBatch(ctx context.Context, sup *supervisor.Supervisor, b batch.Batch, opts prober.Options, logger *zap.Logger) []prober.Result {
	handle, err := sup.Run(ctx, b)
	if err != nil {
		logger.Warn("batch core failed to start", zap.Int("batch", b.Number), zap.Error(err))
		results := make([]prober.Result, len(b.Slots))
		for i, slot := range b.Slots {
			results[i] = prober.Result{Link: slot.Descriptor.Link, LatencyMS: -1, Success: false, Message: "Batch Failed"}
		}
		return results
	}
	defer func() {
		if err := sup.Teardown(handle); err != nil {
			logger.Error("failed to tear down batch core", zap.Int("batch", b.Number), zap.Error(err))
		}
	}()

	return prober.ProbeBatch(ctx, b, opts)
}

// parseAll parses every link, dropping any that fail to parse or fail
// descriptor validation, logging each drop at debug level.
func parseAll(links []string, logger *zap.Logger) []descriptor.LinkedDescriptor {
	out := make([]descriptor.LinkedDescriptor, 0, len(links))
	for _, link := range links {
		d, err := linkparser.Parse(link)
		if err != nil {
			logger.Debug("dropping unparseable link", zap.Error(err))
			continue
		}
		if !d.Valid() {
			logger.Debug("dropping invalid descriptor", zap.String("server", d.Server))
			continue
		}
		out = append(out, descriptor.LinkedDescriptor{Link: link, Descriptor: d})
	}
	return out
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
