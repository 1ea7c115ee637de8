package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const (
	cacheLockWait      = 5 * time.Second
	cacheLockSleepStep = 50 * time.Millisecond
)

// ReadCache returns the raw bytes of a previously cached registry document,
// holding a shared flock for the duration of the read so a concurrent update
// cannot hand back a half-written file.
func ReadCache(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := lockFile(file, unix.LOCK_SH); err != nil {
		return nil, err
	}
	defer func() {
		_ = unix.Flock(int(file.Fd()), unix.LOCK_UN)
	}()
	return os.ReadFile(path)
}

// WriteCache stores a registry document at path, creating parent directories
// as needed. The content lands via a temp file and rename so readers never
// observe a partial cache; an exclusive flock on the target serializes
// concurrent updates.
func WriteCache(path string, data []byte) error {
	if path == "" {
		return errors.New("cache path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer target.Close()
	if err := lockFile(target, unix.LOCK_EX); err != nil {
		return err
	}
	defer func() {
		_ = unix.Flock(int(target.Fd()), unix.LOCK_UN)
	}()

	tmp, err := os.CreateTemp(dir, ".registry-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func lockFile(file *os.File, lockType int) error {
	deadline := time.Now().Add(cacheLockWait)
	for {
		err := unix.Flock(int(file.Fd()), lockType|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if errors.Is(err, unix.EWOULDBLOCK) {
			if time.Now().After(deadline) {
				return fmt.Errorf("timed out waiting for registry cache lock")
			}
			time.Sleep(cacheLockSleepStep)
			continue
		}
		return err
	}
}
