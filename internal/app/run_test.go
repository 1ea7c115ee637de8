package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Johnr24/portpick/internal/config"
	"github.com/Johnr24/portpick/internal/portset"
	"github.com/Johnr24/portpick/internal/registry"
)

// fakeCollector returns a fixed set of in-use ports, or an error.
type fakeCollector struct {
	ports portset.Set
	err   error

	gotAddress string
}

func (f *fakeCollector) Collect(_ context.Context, address string) (portset.Set, error) {
	f.gotAddress = address
	if f.err != nil {
		return nil, f.err
	}
	return f.ports, nil
}

// fakeChecker marks every port free except the listed ones.
type fakeChecker struct {
	busy portset.Set
}

func (f fakeChecker) IsFree(port uint16) bool {
	return !f.busy.Contains(port)
}

// testOptions builds Options backed by a temp config, a services file with
// the given content and a fake collector.
func testOptions(t *testing.T, services string, collector *fakeCollector) (Options, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	servicesPath := filepath.Join(dir, "services")
	require.NoError(t, os.WriteFile(servicesPath, []byte(services), 0o644))

	cfg := config.Default()
	cfg.CacheFile = filepath.Join(dir, "nmap-services.cache")
	cfg.IANACSVFile = filepath.Join(dir, "iana.csv")
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, config.Save(configPath, cfg))

	stderr := &bytes.Buffer{}
	return Options{
		ConfigPath:   configPath,
		Count:        1,
		ServicesFile: servicesPath,
		Collector:    collector,
		Checker:      fakeChecker{busy: portset.New()},
		Stderr:       stderr,
		Fetch: func(ctx context.Context, url string) ([]byte, error) {
			return nil, fmt.Errorf("unexpected fetch of %s", url)
		},
	}, stderr
}

func TestRun(t *testing.T) {
	t.Run("excludes registry and live ports", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New(1024)}
		opts, _ := testOptions(t, "svc 1025/tcp\nsvc2 1026/tcp\n", collector)

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1027}, result.Ports)
		assert.Equal(t, 3, result.Forbidden)
		assert.False(t, result.Partial())
	})

	t.Run("zero count short-circuits", func(t *testing.T) {
		collector := &fakeCollector{err: errors.New("should not be called")}
		opts, _ := testOptions(t, "", collector)
		opts.Count = 0

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Empty(t, result.Ports)
		assert.Empty(t, collector.gotAddress)
	})

	t.Run("scan failure is fatal by default", func(t *testing.T) {
		collector := &fakeCollector{err: errors.New("lsof missing")}
		opts, _ := testOptions(t, "", collector)

		_, err := Run(context.Background(), opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrScanUnavailable)
		var codeErr CodeError
		require.ErrorAs(t, err, &codeErr)
		assert.Equal(t, 1, codeErr.Code)
	})

	t.Run("force tolerates scan failure with a warning", func(t *testing.T) {
		collector := &fakeCollector{err: errors.New("lsof missing")}
		opts, stderr := testOptions(t, "svc 1024/tcp\n", collector)
		opts.Force = true

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1025}, result.Ports)
		assert.Contains(t, stderr.String(), "Warning:")
	})

	t.Run("missing services file warns and proceeds", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, stderr := testOptions(t, "", collector)
		opts.ServicesFile = filepath.Join(t.TempDir(), "absent")

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1024}, result.Ports)
		assert.Contains(t, stderr.String(), "Warning:")
	})

	t.Run("unknown source warns and uses system", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, stderr := testOptions(t, "svc 1024/tcp\n", collector)
		opts.Source = "invalidvalue"

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1025}, result.Ports)
		assert.Contains(t, stderr.String(), `Unknown source "invalidvalue"`)
	})

	t.Run("continuous request returns a block", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New(1024, 1027)}
		opts, _ := testOptions(t, "", collector)
		opts.Count = 3
		opts.Continuous = true

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1028, 1029, 1030}, result.Ports)
		assert.True(t, result.Continuous)
	})

	t.Run("dynamic preference flag wins over config", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.TierPreference = "dynamic"

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{49152}, result.Ports)
	})

	t.Run("invalid preference is rejected", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.TierPreference = "sideways"

		_, err := Run(context.Background(), opts)
		assert.ErrorIs(t, err, ErrInvalidTierPreference)
	})

	t.Run("address is handed to the collector", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.Address = "db.internal"

		_, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, "db.internal", collector.gotAddress)
	})

	t.Run("busy suggested port only warns", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, stderr := testOptions(t, "", collector)
		opts.Checker = fakeChecker{busy: portset.New(1024)}

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1024}, result.Ports)
		assert.Contains(t, stderr.String(), "bind probe")
	})
}

func TestRunSourceChains(t *testing.T) {
	t.Run("nmap fetch populates the cache", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.Source = SourceNmap
		opts.Fetch = func(ctx context.Context, url string) ([]byte, error) {
			assert.Equal(t, registry.NmapServicesURL, url)
			return []byte("http 1024/tcp\n"), nil
		}

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1025}, result.Ports)

		// The fetched listing was cached for the cache source.
		cfg, err := config.Load(opts.ConfigPath)
		require.NoError(t, err)
		cached, err := registry.ReadCache(cfg.CacheFile)
		require.NoError(t, err)
		assert.Equal(t, "http 1024/tcp\n", string(cached))
	})

	t.Run("nmap fetch failure falls back to cache then system", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, stderr := testOptions(t, "sys 1024/tcp\n", collector)
		opts.Source = SourceNmap
		opts.Fetch = func(ctx context.Context, url string) ([]byte, error) {
			return nil, errors.New("network down")
		}

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		// No cache file exists, so the chain lands on the system listing.
		assert.Equal(t, []uint16{1025}, result.Ports)
		assert.Contains(t, stderr.String(), "network down")
	})

	t.Run("cache source reads a previously cached listing", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.Source = SourceCache
		cfg, err := config.Load(opts.ConfigPath)
		require.NoError(t, err)
		require.NoError(t, registry.WriteCache(cfg.CacheFile, []byte("cached 1024/tcp\n")))

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1025}, result.Ports)
	})

	t.Run("iana source reads the local csv", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.Source = SourceIANA
		cfg, err := config.Load(opts.ConfigPath)
		require.NoError(t, err)
		csv := "Service Name,Port Number\nsvc,1024-1026\n"
		require.NoError(t, os.WriteFile(cfg.IANACSVFile, []byte(csv), 0o644))

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1027}, result.Ports)
	})

	t.Run("structurally broken csv falls back to system", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, stderr := testOptions(t, "sys 1024/tcp\n", collector)
		opts.Source = SourceIANA
		cfg, err := config.Load(opts.ConfigPath)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(cfg.IANACSVFile, []byte("Name,Proto\nhttp,tcp\n"), 0o644))

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1025}, result.Ports)
		assert.Contains(t, stderr.String(), "Port Number")
	})

	t.Run("wiki source parses the fetched table", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.Source = SourceWiki
		opts.Fetch = func(ctx context.Context, url string) ([]byte, error) {
			assert.Equal(t, registry.WikipediaPortsURL, url)
			return []byte(`<table><tr><td>1024-1025</td></tr></table>`), nil
		}

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1026}, result.Ports)
	})

	t.Run("update refreshes the iana csv before the run", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, _ := testOptions(t, "", collector)
		opts.Source = SourceIANA
		opts.Update = true
		opts.Fetch = func(ctx context.Context, url string) ([]byte, error) {
			assert.Equal(t, registry.IANACSVURL, url)
			return []byte("Service Name,Port Number\nsvc,1024\n"), nil
		}

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1025}, result.Ports)
	})

	t.Run("update fetch failure only warns", func(t *testing.T) {
		collector := &fakeCollector{ports: portset.New()}
		opts, stderr := testOptions(t, "sys 1024/tcp\n", collector)
		opts.Update = true
		opts.Fetch = func(ctx context.Context, url string) ([]byte, error) {
			return nil, errors.New("offline")
		}

		result, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, []uint16{1025}, result.Ports)
		assert.Contains(t, stderr.String(), "offline")
	})
}
