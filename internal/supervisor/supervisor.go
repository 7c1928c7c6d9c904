// Package supervisor manages the lifetime of one proxy core process per
// batch: writing its JSON config, starting it, waiting for its first inbound
// port to become reachable, and tearing it down afterwards.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/txthinking/runnergroup"
	"go.uber.org/zap"

	"github.com/draco-tlw/rayzor/internal/batch"
	"github.com/draco-tlw/rayzor/internal/constants"
	"github.com/draco-tlw/rayzor/internal/coreconfig"
	"github.com/draco-tlw/rayzor/internal/process"
)

const (
	// readinessDialTimeout bounds a single TCP dial against the batch's
	// first port.
	readinessDialTimeout = 200 * time.Millisecond
	// readinessPollInterval is the pause between dials while not yet ready.
	readinessPollInterval = 100 * time.Millisecond
	// readinessTotalTimeout is the overall budget before a batch is declared dead.
	readinessTotalTimeout = 5 * time.Second
	// forceKillGrace is how long Teardown waits after signalling before it
	// confirms the process is gone via the process list and force-kills it.
	forceKillGrace = 2 * time.Second
)

// Supervisor owns one core process for the duration of one batch.
type Supervisor struct {
	corePath string
	workDir  string
	logger   *zap.Logger
}

// New constructs a Supervisor that launches corePath with configs written
// under workDir.
func New(corePath, workDir string, logger *zap.Logger) *Supervisor {
	return &Supervisor{corePath: corePath, workDir: workDir, logger: logger}
}

// Handle is a running batch's process, the config path backing it, and the
// single channel its exit status is ever delivered on. cmd.Wait may only be
// called once for the lifetime of a process, so exactly one goroutine calls
// it and every other consumer reads the result off exited instead.
type Handle struct {
	cmd        *exec.Cmd
	configPath string
	batch      batch.Batch
	exited     chan error
}

// Run writes the batch's config, starts the core, and blocks until its
// first slot's port is reachable or the core exits first. On success it
// returns a Handle the caller must pass to Teardown. On failure the config
// file is renamed to a failed_batch_<n>.json for postmortem inspection.
func (s *Supervisor) Run(ctx context.Context, b batch.Batch) (*Handle, error) {
	cfg := coreconfig.Generate(b)
	configPath := filepath.Join(s.workDir, fmt.Sprintf(constants.BatchConfigFileName, b.Number))

	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal batch %d config: %w", b.Number, err)
	}
	if err := os.WriteFile(configPath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("write batch %d config: %w", b.Number, err)
	}

	cmd := exec.CommandContext(ctx, s.corePath, "run", "-c", configPath)
	cmd.Dir = s.workDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		s.markFailed(b.Number, configPath)
		return nil, fmt.Errorf("start core for batch %d: %w", b.Number, err)
	}
	s.logger.Info("core started", zap.Int("batch", b.Number), zap.Int("pid", cmd.Process.Pid))

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	h := &Handle{cmd: cmd, configPath: configPath, batch: b, exited: exited}

	if err := s.waitReady(b, h); err != nil {
		_ = cmd.Process.Kill()
		<-exited
		if out := strings.TrimSpace(stderr.String()); out != "" {
			s.logger.Warn("core stderr", zap.Int("batch", b.Number), zap.String("stderr", out))
		}
		s.markFailed(b.Number, configPath)
		return nil, fmt.Errorf("batch %d core did not become ready: %w", b.Number, err)
	}

	return h, nil
}

// waitReady races port polling against the child process exiting first,
// using a runnergroup so either outcome stops the other cleanly: whichever
// Start returns first makes runnergroup.Wait call every Stop.
func (s *Supervisor) waitReady(b batch.Batch, h *Handle) error {
	group := runnergroup.New()
	stopPoll := make(chan struct{})
	var ready int32

	group.Add(&runnergroup.Runner{
		Start: func() error {
			err := pollFirstPortReady(b, readinessTotalTimeout, stopPoll)
			if err == nil {
				atomic.StoreInt32(&ready, 1)
			}
			return err
		},
		Stop: func() error {
			select {
			case <-stopPoll:
			default:
				close(stopPoll)
			}
			return nil
		},
	})

	group.Add(&runnergroup.Runner{
		Start: func() error {
			err := <-h.exited
			// Put the result back so Run or Teardown can still read it.
			h.exited <- err
			return fmt.Errorf("core exited before the batch became ready: %w", errOrExited(err))
		},
		Stop: func() error {
			// The readiness poll already won the race: the process must
			// stay alive for the caller to probe and tear down. Killing it
			// here would undo a successful Run for no reason.
			if atomic.LoadInt32(&ready) == 1 {
				return nil
			}
			_ = h.cmd.Process.Kill()
			return nil
		},
	})

	return group.Wait()
}

func errOrExited(err error) error {
	if err == nil {
		return fmt.Errorf("clean exit")
	}
	return err
}

// pollFirstPortReady dials the batch's first slot's port until it responds
// or the deadline or stop signal arrives. Only the first port gates
// readiness, matching the original tester's wait_for_port(BASE_PORT, ...);
// a core that is slow to bind a later inbound is left to the prober, which
// reports that slot as a timeout rather than failing the whole batch.
func pollFirstPortReady(b batch.Batch, timeout time.Duration, stop <-chan struct{}) error {
	if len(b.Slots) == 0 {
		return nil
	}
	port := b.Slots[0].Port
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-stop:
			return fmt.Errorf("readiness poll cancelled")
		default:
		}

		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), readinessDialTimeout)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("port %d never became reachable", port)
		}

		select {
		case <-stop:
			return fmt.Errorf("readiness poll cancelled")
		case <-time.After(readinessPollInterval):
		}
	}
}

// Teardown signals the core to exit, waits briefly, and force-kills it if
// the process list still shows it running. The config file is removed only
// if the core exited cleanly; after an abnormal exit it is kept for
// postmortem inspection. It never calls cmd.Wait itself — that already
// happened in the single goroutine Run started — it only reads the result
// off h.exited.
func (s *Supervisor) Teardown(h *Handle) error {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	pid := h.cmd.Process.Pid

	_ = h.cmd.Process.Signal(syscall.SIGTERM)

	var exitErr error
	select {
	case exitErr = <-h.exited:
	case <-time.After(forceKillGrace):
		if info, found, err := process.FindProcess(pid); found || err != nil {
			s.logger.Warn("core still running after terminate signal, forcing", zap.Int("pid", pid), zap.String("name", info.Name))
			_ = h.cmd.Process.Kill()
		}
		exitErr = <-h.exited
	}

	if exitErr != nil {
		s.logger.Warn("core exited abnormally, keeping batch config", zap.Int("batch", h.batch.Number), zap.String("config", h.configPath), zap.Error(exitErr))
		return nil
	}
	if err := os.Remove(h.configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove batch %d config: %w", h.batch.Number, err)
	}
	return nil
}

// markFailed renames a batch's config to a postmortem-friendly name instead
// of deleting it, so a failed batch's exact inputs survive the run.
func (s *Supervisor) markFailed(batchNumber int, configPath string) {
	failedPath := filepath.Join(s.workDir, fmt.Sprintf("failed_batch_%d.json", batchNumber))
	if err := os.Rename(configPath, failedPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("failed to preserve failed batch config", zap.Int("batch", batchNumber), zap.Error(err))
	}
}
