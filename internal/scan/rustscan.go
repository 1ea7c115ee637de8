package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Johnr24/portpick/internal/portset"
)

// Rustscan collects in-use TCP ports by actively scanning a target address.
// Its accessible-ports mode prints one decimal port per line, which is the
// shape ParsePortList consumes.
type Rustscan struct {
	Binary string

	// Warn receives a note for each non-numeric output line. Optional.
	Warn func(line string)
}

func NewRustscan() *Rustscan {
	return &Rustscan{Binary: "rustscan"}
}

// Collect scans address, defaulting to the loopback host when it is empty.
func (r *Rustscan) Collect(ctx context.Context, address string) (portset.Set, error) {
	if address == "" {
		address = "127.0.0.1"
	}
	cmd := exec.CommandContext(ctx, r.Binary, "-a", address, "--accessible", "-g")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s failed with %s: %s", r.Binary, exitErr.ProcessState, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("run %s: %w", r.Binary, err)
	}
	return ParsePortList(string(out), r.Warn), nil
}

// ParsePortList reads one-port-per-line scanner output. Blank lines are
// skipped; non-numeric or out-of-range lines are reported through warn when
// it is non-nil, never treated as fatal.
func ParsePortList(output string, warn func(line string)) portset.Set {
	ports := portset.New()
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		port, err := strconv.ParseUint(line, 10, 16)
		if err != nil {
			if warn != nil {
				warn(line)
			}
			continue
		}
		ports.Add(uint16(port))
	}
	return ports
}
