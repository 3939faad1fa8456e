// Package driver holds the small pieces of bookkeeping shared by the
// scathac and svm CLI binaries (scdis does not use it): a centralized
// exit-status accumulator with AtExit hooks, wall-clock timing for -t,
// and CPU profile capture for scathac's --cpuprofile. Internal compiler/VM packages
// never call log or os.Exit themselves -- they return errors, and only
// a cmd/ main wires them to this package, mirroring
// cmd_local/go/internal/base.Command's centralized Errorf/Fatalf/exit
// bookkeeping (adapted here without the Command dispatch type itself,
// since none of these three binaries are subcommand-style tools).
package driver

import (
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/google/pprof/profile"
)

var (
	exitMu     sync.Mutex
	exitStatus int
	atExit     []func()
)

// SetExitStatus raises the process's eventual exit code to n if n is
// higher than whatever was previously recorded -- a later success path
// must never downgrade an earlier failure's status.
func SetExitStatus(n int) {
	exitMu.Lock()
	defer exitMu.Unlock()
	if n > exitStatus {
		exitStatus = n
	}
}

// ExitStatus returns the status Exit will use if called right now.
func ExitStatus() int {
	exitMu.Lock()
	defer exitMu.Unlock()
	return exitStatus
}

// AtExit registers f to run, in registration order, the next time Exit
// is called -- used to flush profiles and close log files on every
// exit path, including an error path that calls Exit early.
func AtExit(f func()) {
	exitMu.Lock()
	atExit = append(atExit, f)
	exitMu.Unlock()
}

// Exit runs every registered AtExit hook and terminates the process
// with the accumulated exit status.
func Exit() {
	exitMu.Lock()
	hooks := atExit
	status := exitStatus
	exitMu.Unlock()
	for _, f := range hooks {
		f()
	}
	os.Exit(status)
}

// Errorf logs a formatted error and raises the exit status to 1
// without terminating -- for a driver that wants to report several
// independent failures (e.g. one per input file) before exiting once.
func Errorf(format string, args ...any) {
	log.Printf(format, args...)
	SetExitStatus(1)
}

// Fatalf logs a formatted error, raises the exit status to 1, and
// exits immediately.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	Exit()
}

// Timer measures wall-clock duration for the -t/--time flag, in the
// style of cmd_local/go's -x/-t build timing (elapsed time reported
// to stderr, never stdout, so it never pollutes piped program output).
type Timer struct {
	label string
	start time.Time
}

// StartTimer begins timing an operation named label. The caller must
// call Stop when the operation completes.
func StartTimer(label string) *Timer {
	return &Timer{label: label, start: time.Now()}
}

// Stop prints the elapsed duration to stderr if enabled is true,
// matching -t/--time's "only when requested" contract; it is always
// safe to call even when the flag wasn't set.
func (t *Timer) Stop(enabled bool) {
	if !enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", t.label, time.Since(t.start))
}

// StartCPUProfile begins writing a pprof-format CPU profile to path,
// returning a stop function the caller should defer (or register via
// AtExit) to flush and close it. An empty path disables profiling and
// returns a no-op stop function, so call sites can unconditionally
// defer the result.
func StartCPUProfile(path string) (stop func(), err error) {
	if path == "" {
		return func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("driver: create cpu profile %q: %w", path, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("driver: start cpu profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

// SummarizeCPUProfile re-parses a profile written by StartCPUProfile's
// stop function through github.com/google/pprof/profile -- the same
// library the standalone `pprof` tool is built on -- and returns a
// one-line sample-count/duration summary suitable for -t output. This
// is a convenience for a driver that wants to report something more
// than "profile written to <path>"; feeding path to the real pprof
// tool remains the primary workflow.
func SummarizeCPUProfile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("driver: open cpu profile %q: %w", path, err)
	}
	defer f.Close()

	prof, err := profile.Parse(f)
	if err != nil {
		return "", fmt.Errorf("driver: parse cpu profile %q: %w", path, err)
	}
	return fmt.Sprintf("%d samples over %s", len(prof.Sample), time.Duration(prof.DurationNanos)), nil
}
