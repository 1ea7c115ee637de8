package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// IANACSVURL is the authoritative service-name/port-number assignments CSV.
	IANACSVURL = "https://www.iana.org/assignments/service-names-port-numbers/service-names-port-numbers.csv"

	// NmapServicesURL is nmap's frequency-annotated services listing, which
	// parses with the same rules as /etc/services.
	NmapServicesURL = "https://svn.nmap.org/nmap/nmap-services"

	// WikipediaPortsURL is the HTML port table used by the "wiki" source.
	WikipediaPortsURL = "https://en.wikipedia.org/wiki/List_of_TCP_and_UDP_port_numbers"

	fetchTimeout = 30 * time.Second
)

// Fetcher downloads registry documents. Abstracted so tests and the app can
// substitute canned content for network access.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// FetchURL downloads the document at url, with a bounded timeout. Non-2xx
// responses are errors: a registry served as an error page must not be
// mistaken for an empty registry.
func FetchURL(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
