package app

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/Johnr24/portpick/internal/portset"
	"github.com/Johnr24/portpick/internal/registry"
)

// Registry source names accepted by --source.
const (
	SourceSystem = "system"
	SourceNmap   = "nmap"
	SourceCache  = "cache"
	SourceIANA   = "iana"
	SourceWiki   = "wiki"
)

// registryPorts resolves the selected registry source into a forbidden-port
// set, walking the fallback chain on failure. Every failure is surfaced as a
// warning rather than silently shrinking the exclusion set; only when the
// whole chain is exhausted does it return an empty set, with a final warning
// that results are less reliable.
func (r *runner) registryPorts(ctx context.Context) portset.Set {
	source := r.opts.Source
	if source == "" {
		source = r.cfg.DefaultSource
	}
	switch source {
	case SourceSystem, SourceNmap, SourceCache, SourceIANA, SourceWiki:
	default:
		r.log.Warnf("Unknown source %q. Defaulting to %q services.", source, SourceSystem)
		source = SourceSystem
	}

	for source != "" {
		ports, next, err := r.readSource(ctx, source)
		if err == nil {
			r.log.Debugf("Found %d distinct TCP ports from source %q.", ports.Len(), source)
			_ = r.log.Event("SOURCE", fmt.Sprintf("name=%s ports=%d", source, ports.Len()))
			return ports
		}
		if next != "" {
			r.log.Warnf("Source %q failed: %v. Falling back to %q.", source, err, next)
		} else {
			r.log.Warnf("Source %q failed: %v.", source, err)
		}
		source = next
	}
	r.log.Warnf("No registry source could be read; proceeding without reserved-port data. Results may be less reliable.")
	return portset.New()
}

// readSource reads one registry source. next names the fallback to try when
// this source fails, empty when it is the end of the chain.
func (r *runner) readSource(ctx context.Context, source string) (ports portset.Set, next string, err error) {
	switch source {
	case SourceSystem:
		r.log.Debugf("Source %q: using services file: %s", source, r.opts.ServicesFile)
		data, err := os.ReadFile(r.opts.ServicesFile)
		if err != nil {
			return nil, "", err
		}
		ports, err := registry.ParseServices(string(data))
		return ports, "", err

	case SourceNmap:
		r.log.Debugf("Source %q: fetching %s", source, registry.NmapServicesURL)
		data, err := r.opts.Fetch(ctx, registry.NmapServicesURL)
		if err != nil {
			return nil, SourceCache, err
		}
		if err := registry.WriteCache(r.cfg.CacheFile, data); err != nil {
			r.log.Warnf("Could not cache nmap services to %s: %v", r.cfg.CacheFile, err)
		} else {
			r.log.Debugf("Cached nmap services to %s", r.cfg.CacheFile)
		}
		ports, err := registry.ParseServices(string(data))
		return ports, SourceCache, err

	case SourceCache:
		r.log.Debugf("Source %q: using cached nmap services from %s", source, r.cfg.CacheFile)
		data, err := registry.ReadCache(r.cfg.CacheFile)
		if err != nil {
			return nil, SourceSystem, err
		}
		ports, err := registry.ParseServices(string(data))
		if err != nil {
			return nil, SourceSystem, err
		}
		return ports, SourceSystem, nil

	case SourceIANA:
		r.log.Debugf("Source %q: using IANA CSV from %s", source, r.cfg.IANACSVFile)
		file, err := os.Open(r.cfg.IANACSVFile)
		if err != nil {
			return nil, SourceSystem, err
		}
		defer file.Close()
		ports, err := r.tables.ParseCSV(file)
		if err != nil {
			return nil, SourceSystem, err
		}
		return ports, SourceSystem, nil

	case SourceWiki:
		r.log.Debugf("Source %q: fetching %s", source, registry.WikipediaPortsURL)
		data, err := r.opts.Fetch(ctx, registry.WikipediaPortsURL)
		if err != nil {
			return nil, SourceSystem, err
		}
		ports, err := r.tables.ParseHTML(bytes.NewReader(data))
		if err != nil {
			return nil, SourceSystem, err
		}
		return ports, SourceSystem, nil
	}
	return nil, "", fmt.Errorf("unhandled source %q", source)
}

// updateIANACSV refreshes the local IANA CSV from the remote registry.
// Failures are warnings: the run continues with whatever local data exists.
func (r *runner) updateIANACSV(ctx context.Context) {
	r.log.Debugf("Updating IANA port assignments from %s", registry.IANACSVURL)
	data, err := r.opts.Fetch(ctx, registry.IANACSVURL)
	if err != nil {
		r.log.Warnf("Could not fetch remote IANA CSV: %v. Proceeding with existing local data if available.", err)
		return
	}
	if err := registry.WriteCache(r.cfg.IANACSVFile, data); err != nil {
		r.log.Warnf("Could not save IANA CSV to %s: %v. Proceeding with existing local data if available.", r.cfg.IANACSVFile, err)
		return
	}
	r.log.Debugf("Updated local IANA CSV: %s", r.cfg.IANACSVFile)
	_ = r.log.Event("UPDATE", fmt.Sprintf("file=%s bytes=%d", r.cfg.IANACSVFile, len(data)))
}
