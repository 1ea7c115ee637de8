package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/Johnr24/portpick/internal/portset"
)

// Lsof collects local listening TCP ports by running lsof and extracting the
// port from each ":<port> (LISTEN)" line.
type Lsof struct {
	// Binary overrides the executable name, mainly for tests.
	Binary string

	listenRe *regexp.Regexp
}

func NewLsof() *Lsof {
	return &Lsof{
		Binary:   "lsof",
		listenRe: regexp.MustCompile(`:(\d{1,5})\s*\(LISTEN\)$`),
	}
}

// Collect runs lsof against the local host. A target address is not
// supported: listening-socket dumps only describe the machine they run on.
func (l *Lsof) Collect(ctx context.Context, address string) (portset.Set, error) {
	if address != "" {
		return nil, errors.New("lsof can only inspect the local host")
	}
	cmd := exec.CommandContext(ctx, l.Binary, "-iTCP", "-sTCP:LISTEN", "-P", "-n")
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s failed with %s: %s", l.Binary, exitErr.ProcessState, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("run %s: %w", l.Binary, err)
	}
	return l.Parse(string(out)), nil
}

// Parse extracts listening ports from raw lsof output. Lines without the
// LISTEN marker, and ports that do not fit in 16 bits, are ignored.
func (l *Lsof) Parse(output string) portset.Set {
	ports := portset.New()
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := l.listenRe.FindStringSubmatch(strings.TrimRight(scanner.Text(), " \t"))
		if m == nil {
			continue
		}
		port, err := strconv.ParseUint(m[1], 10, 16)
		if err != nil {
			continue
		}
		ports.Add(uint16(port))
	}
	return ports
}
