package gltf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	"glb-merger/internal/domain"
)

const maxLogLine = 1 << 20

// LogFunc receives one log line tagged info, out or err.
type LogFunc func(kind domain.LogType, text string)

// Invocation describes one external tool run.
type Invocation struct {
	Executable string
	Args       []string
	WorkDir    string
	Message    string
	OnLog      LogFunc
}

// Invoker runs external commands, streaming their output as it arrives.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) error
}

// ExecInvoker launches processes via os/exec.
type ExecInvoker struct{}

// Invoke announces, spawns, streams stdout/stderr line by line, and
// returns nil only when the process exits with code 0.
func (ExecInvoker) Invoke(ctx context.Context, inv Invocation) error {
	inv.OnLog = serialize(inv.OnLog)
	if inv.Message != "" {
		emit(inv.OnLog, domain.LogTypeInfo, inv.Message)
	}

	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Dir = inv.WorkDir

	fail := func(err error) error {
		procErr := &ProcessError{Command: inv.Executable, Args: inv.Args, ExitCode: -1, Err: err}
		emit(inv.OnLog, domain.LogTypeErr, err.Error())
		return procErr
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fail(fmt.Errorf("stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fail(fmt.Errorf("stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return fail(err)
	}

	var g errgroup.Group
	g.Go(func() error { return streamLines(stdout, domain.LogTypeOut, inv.OnLog) })
	g.Go(func() error { return streamLines(stderr, domain.LogTypeErr, inv.OnLog) })
	scanErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fail(err)
		}
		procErr := &ProcessError{
			Command:  inv.Executable,
			Args:     inv.Args,
			ExitCode: exitErr.ExitCode(),
			Err:      err,
		}
		emit(inv.OnLog, domain.LogTypeErr, procErr.Error())
		return procErr
	}
	if scanErr != nil {
		return fail(fmt.Errorf("read output: %w", scanErr))
	}
	return nil
}

// streamLines forwards each line of r until EOF.
func streamLines(r io.Reader, kind domain.LogType, cb LogFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	for scanner.Scan() {
		emit(cb, kind, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		// Drain so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

// serialize guards cb so the stdout and stderr readers never call it
// concurrently.
func serialize(cb LogFunc) LogFunc {
	if cb == nil {
		return nil
	}
	var mu sync.Mutex
	return func(kind domain.LogType, text string) {
		mu.Lock()
		defer mu.Unlock()
		cb(kind, text)
	}
}

// emit forwards a log line when a callback is configured.
func emit(cb LogFunc, kind domain.LogType, text string) {
	if cb != nil {
		cb(kind, text)
	}
}
