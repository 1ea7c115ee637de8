// Package scan collects the TCP ports currently in use, either by dumping
// local listening sockets or by actively scanning a target address. The
// parse helpers are pure text-to-set transforms so they stay testable
// without the external binaries installed.
package scan

import (
	"context"

	"github.com/Johnr24/portpick/internal/portset"
)

// Collector gathers currently-used TCP ports for an optional target address.
// An empty address means the local host. Implementations wrap whatever
// scanning mechanism is available; callers never see tool-specific syntax.
type Collector interface {
	Collect(ctx context.Context, address string) (portset.Set, error)
}
