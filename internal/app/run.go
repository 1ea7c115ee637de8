// Package app wires the registry parsers, live-usage collectors and the
// search engine into a single run on behalf of the CLI driver.
package app

import (
	"context"
	"fmt"

	"github.com/Johnr24/portpick/internal/config"
	"github.com/Johnr24/portpick/internal/logger"
	"github.com/Johnr24/portpick/internal/portset"
	"github.com/Johnr24/portpick/internal/registry"
	"github.com/Johnr24/portpick/internal/scan"
	"github.com/Johnr24/portpick/internal/search"
)

// Result is the outcome of one suggestion run.
type Result struct {
	// Ports holds the suggested ports, in discovery order.
	Ports []uint16

	// Requested echoes the desired count so the driver can flag shortfalls.
	Requested uint16

	// Continuous records the search mode; an empty continuous result means
	// no block was found, not that every port is taken.
	Continuous bool

	// Forbidden is the size of the aggregated exclusion set.
	Forbidden int
}

// Partial reports whether fewer ports than requested were found.
func (r Result) Partial() bool {
	return len(r.Ports) < int(r.Requested)
}

type runner struct {
	opts   Options
	cfg    config.Config
	log    logger.Logger
	tables *registry.TableParser
}

// Run aggregates forbidden ports from the selected sources and searches the
// user-port tiers for the requested count.
//
// Registry failures degrade with warnings; a failed live-usage scan is fatal
// (exit code 1) unless opts.Force is set, since a stale exclusion set risks
// suggesting an already-bound port.
func Run(ctx context.Context, opts Options) (Result, error) {
	opts = resolveOptions(opts)
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return Result{}, NewCodeError(1, err)
	}
	prefValue := opts.TierPreference
	if prefValue == "" {
		prefValue = cfg.TierPreference
	}
	pref, err := tierPreference(prefValue)
	if err != nil {
		return Result{}, NewCodeError(2, fmt.Errorf("%w: %q", err, prefValue))
	}

	r := &runner{
		opts:   opts,
		cfg:    cfg,
		log:    logger.Logger{Path: cfg.LogFile, Verbose: opts.Verbose, Stderr: opts.Stderr},
		tables: registry.NewTableParser(),
	}

	if opts.Update {
		r.updateIANACSV(ctx)
	}

	if opts.Count == 0 {
		return Result{Continuous: opts.Continuous}, nil
	}

	reserved := r.registryPorts(ctx)

	used, err := r.usedPorts(ctx)
	if err != nil {
		if !opts.Force {
			return Result{}, NewCodeError(1, fmt.Errorf("%w: %v", ErrScanUnavailable, err))
		}
		r.log.Warnf("%v (continuing due to --force; suggestions may collide with bound ports)", err)
		used = portset.New()
	}

	exclusion := portset.Union(reserved, used)
	r.log.Debugf("Total %d forbidden ports collected.", exclusion.Len())

	ports := search.Find(exclusion, opts.Count, opts.Continuous, pref)
	r.verify(ports)
	_ = r.log.Event("RESULT", fmt.Sprintf("requested=%d found=%d continuous=%t forbidden=%d",
		opts.Count, len(ports), opts.Continuous, exclusion.Len()))

	return Result{
		Ports:      ports,
		Requested:  opts.Count,
		Continuous: opts.Continuous,
		Forbidden:  exclusion.Len(),
	}, nil
}

// usedPorts collects currently-bound TCP ports for the run's target.
func (r *runner) usedPorts(ctx context.Context) (portset.Set, error) {
	collector := r.opts.Collector
	if collector == nil {
		if r.opts.Address == "" {
			collector = scan.NewLsof()
		} else {
			rs := scan.NewRustscan()
			rs.Binary = r.cfg.Scanner
			rs.Warn = func(line string) {
				r.log.Debugf("Ignoring scanner output line: %q", line)
			}
			collector = rs
		}
	}
	ports, err := collector.Collect(ctx, r.opts.Address)
	if err != nil {
		return nil, err
	}
	r.log.Debugf("Found %d TCP ports in use.", ports.Len())
	return ports, nil
}

// verify probes suggested ports with a local bind check and warns about any
// that cannot be bound right now. The result is left untouched: the probe is
// advisory, and a remote target cannot be probed this way at all.
func (r *runner) verify(ports []uint16) {
	if len(ports) == 0 {
		return
	}
	checker := r.opts.Checker
	if checker == nil {
		if r.opts.Address != "" {
			return
		}
		checker = scan.TCPChecker{}
	}
	for _, p := range ports {
		if !checker.IsFree(p) {
			r.log.Warnf("Suggested port %d failed a local bind probe; it may have just been claimed.", p)
		}
	}
}
