package installer

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// lockInfo is the advisory lock file's content, kept for diagnostics when
// a second invocation is refused.
type lockInfo struct {
	PID         int       `json:"pid"`
	OperationID string    `json:"operation_id"`
	Acquired    time.Time `json:"acquired"`
}

// acquireLock takes the advisory install lock. The manifest and version
// marker are mutated by full read-modify-write cycles with no field-level
// locking, so at most one installation operation may run at a time; this
// lock enforces that across processes. The returned release function is
// safe to call on every exit path.
func (i *Installer) acquireLock(operationID string) (func(), error) {
	if err := os.MkdirAll(i.paths.Root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create application root: %w", err)
	}

	f, err := os.OpenFile(i.paths.Lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		if stale, holder := i.lockIsStale(); stale {
			i.logger.Warn("removing stale install lock", "holder_pid", holder)
			if rmErr := os.Remove(i.paths.Lock); rmErr != nil {
				return nil, fmt.Errorf("failed to remove stale lock: %w", rmErr)
			}
			f, err = os.OpenFile(i.paths.Lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		} else {
			return nil, fmt.Errorf("another installation is running (PID %d, lock file: %s)", holder, i.paths.Lock)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	info := lockInfo{
		PID:         os.Getpid(),
		OperationID: operationID,
		Acquired:    time.Now(),
	}
	data, err := json.Marshal(info)
	if err == nil {
		_, err = f.Write(data)
	}
	f.Close()
	if err != nil {
		os.Remove(i.paths.Lock)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	return func() {
		if err := os.Remove(i.paths.Lock); err != nil && !os.IsNotExist(err) {
			i.logger.Warn("failed to remove install lock", "error", err)
		}
	}, nil
}

// lockIsStale reports whether the current lock holder is dead, along with
// the holder's PID when it can be read.
func (i *Installer) lockIsStale() (bool, int) {
	data, err := os.ReadFile(i.paths.Lock)
	if err != nil {
		return false, 0
	}

	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		// Tolerate a bare-PID lock file from older releases.
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr != nil {
			return true, 0
		}
		info.PID = pid
	}

	process, err := os.FindProcess(info.PID)
	if err != nil {
		return true, info.PID
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return true, info.PID
	}
	return false, info.PID
}
