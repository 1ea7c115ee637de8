package app

import (
	"io"

	"github.com/Johnr24/portpick/internal/config"
	"github.com/Johnr24/portpick/internal/registry"
	"github.com/Johnr24/portpick/internal/scan"
	"github.com/Johnr24/portpick/internal/search"
)

const defaultServicesFile = "/etc/services"

// Options carries everything the driver selected for a run.
type Options struct {
	ConfigPath string

	// Source names the registry to consult: system, nmap, cache, iana or
	// wiki. Empty uses the configured default; unknown values warn and fall
	// back to system.
	Source string

	// Address is the scan target for live-usage collection. Empty means the
	// local host.
	Address string

	Count      uint16
	Continuous bool

	// TierPreference overrides the configured tier order when non-empty
	// ("registered" or "dynamic").
	TierPreference string

	// Force downgrades a failed live-usage scan from fatal to a warning.
	Force bool

	// Update refreshes the local IANA CSV from the remote registry before
	// the run.
	Update bool

	Verbose bool

	// ServicesFile overrides the host services listing, mainly for tests.
	ServicesFile string

	// Collector overrides live-usage collection; nil selects lsof for local
	// runs and the configured scanner for remote targets.
	Collector scan.Collector

	// Fetch overrides remote registry downloads; nil uses HTTP.
	Fetch registry.Fetcher

	// Checker probes suggested ports as a final local sanity check; nil
	// disables probing for remote targets and uses a TCP bind probe locally.
	Checker scan.Checker

	// Stderr receives warnings and verbose chatter; nil means os.Stderr.
	Stderr io.Writer
}

func resolveOptions(opts Options) Options {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath()
	}
	opts.ConfigPath = config.ExpandPath(opts.ConfigPath)
	if opts.ServicesFile == "" {
		opts.ServicesFile = defaultServicesFile
	}
	if opts.Fetch == nil {
		opts.Fetch = registry.FetchURL
	}
	return opts
}

func tierPreference(value string) (search.Preference, error) {
	switch value {
	case "", "registered":
		return search.PreferRegistered, nil
	case "dynamic":
		return search.PreferDynamic, nil
	default:
		return search.PreferRegistered, ErrInvalidTierPreference
	}
}
