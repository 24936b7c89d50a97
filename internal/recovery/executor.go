package recovery

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// SystemExecutor implements the recovery hooks against the local host.
// Every hook is best-effort: permission and platform errors come back as
// failed Results, never as errors.
type SystemExecutor struct {
	// CPUHogPercent is the per-process CPU share above which a process
	// gets deprioritized.
	CPUHogPercent float64
	// NiceValue is the niceness applied to CPU hogs.
	NiceValue int
	// TempDirs are the directories PurgeTemp cleans.
	TempDirs []string
	// MaxFileAge is how old a temp file must be before it is purged.
	MaxFileAge time.Duration
}

// NewSystemExecutor returns an executor with the stock settings: renice
// processes over 50% CPU to niceness 10, purge week-old files from the
// usual temp directories.
func NewSystemExecutor() *SystemExecutor {
	return &SystemExecutor{
		CPUHogPercent: 50,
		NiceValue:     10,
		TempDirs:      []string{"/tmp", "/var/tmp"},
		MaxFileAge:    7 * 24 * time.Hour,
	}
}

// Deprioritize renices every process individually exceeding the CPU hog
// threshold, skipping our own pid.
func (e *SystemExecutor) Deprioritize(ctx context.Context) Result {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return Result{Success: false, Detail: fmt.Sprintf("list processes: %v", err)}
	}

	self := int32(os.Getpid())
	reniced := 0
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		if ctx.Err() != nil {
			return Result{Success: false, Detail: fmt.Sprintf("deprioritize timed out after renicing %d processes", reniced)}
		}

		pct, err := p.CPUPercentWithContext(ctx)
		if err != nil || pct <= e.CPUHogPercent {
			continue
		}

		cmd := exec.CommandContext(ctx, "renice", "-n", strconv.Itoa(e.NiceValue), "-p", strconv.Itoa(int(p.Pid)))
		if err := cmd.Run(); err != nil {
			// The process may have exited, or we lack permission;
			// keep going either way.
			continue
		}
		reniced++
	}

	return Result{Success: true, Detail: fmt.Sprintf("reniced %d cpu-hogging processes", reniced)}
}

// DropCaches asks the kernel to drop page cache, dentries and inodes.
// Requires root; failure is reported, not escalated.
func (e *SystemExecutor) DropCaches(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Detail: err.Error()}
	}
	if err := os.WriteFile("/proc/sys/vm/drop_caches", []byte("3"), 0o644); err != nil {
		return Result{Success: false, Detail: fmt.Sprintf("drop caches: %v", err)}
	}
	return Result{Success: true, Detail: "dropped filesystem caches"}
}

// PurgeTemp removes regular files older than MaxFileAge under the
// configured temp directories. Deletion is already idempotent; a rerun
// finds nothing left to remove.
func (e *SystemExecutor) PurgeTemp(ctx context.Context) Result {
	cutoff := time.Now().Add(-e.MaxFileAge)
	removed := 0
	var freed int64

	for _, dir := range e.TempDirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				// Unreadable entries are skipped, not fatal.
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
				return nil
			}
			if rmErr := os.Remove(path); rmErr == nil {
				removed++
				freed += info.Size()
			}
			return nil
		})
		if err != nil {
			return Result{Success: false, Detail: fmt.Sprintf("purge interrupted after %d files: %v", removed, err)}
		}
	}

	return Result{Success: true, Detail: fmt.Sprintf("removed %d stale files (%d bytes)", removed, freed)}
}

// CapFrequency switches every cpufreq policy to the powersave governor,
// which is the portable way to request a lower frequency ceiling.
func (e *SystemExecutor) CapFrequency(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Result{Success: false, Detail: err.Error()}
	}

	policies, err := filepath.Glob("/sys/devices/system/cpu/cpufreq/policy*")
	if err != nil || len(policies) == 0 {
		return Result{Success: false, Detail: "no cpufreq policies available"}
	}

	capped := 0
	for _, policy := range policies {
		gov := filepath.Join(policy, "scaling_governor")
		if err := os.WriteFile(gov, []byte("powersave"), 0o644); err != nil {
			continue
		}
		capped++
	}

	if capped == 0 {
		return Result{Success: false, Detail: fmt.Sprintf("could not set governor on any of %d policies", len(policies))}
	}
	return Result{Success: true, Detail: fmt.Sprintf("set powersave governor on %d/%d policies", capped, len(policies))}
}
