// Package registry parses port registries into sets of reserved TCP ports.
// Supported shapes are line-oriented services listings (/etc/services,
// nmap-services), the IANA assignments CSV, and HTML port tables.
package registry

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/Johnr24/portpick/internal/portset"
)

// ParseServices extracts reserved TCP ports from a services listing where
// each entry is "name  port/protocol". Comments, blank lines, entries named
// "unknown", non-TCP protocols and malformed fields are skipped; a corrupt
// line never aborts the parse. Invalid UTF-8 is replaced before scanning.
func ParseServices(content string) (portset.Set, error) {
	ports := portset.New()
	scanner := bufio.NewScanner(strings.NewReader(strings.ToValidUTF8(content, "�")))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if strings.EqualFold(fields[0], "unknown") {
			continue
		}
		portProto := strings.Split(fields[1], "/")
		if len(portProto) != 2 {
			continue
		}
		if !strings.EqualFold(portProto[1], "tcp") {
			continue
		}
		port, err := strconv.ParseUint(portProto[0], 10, 16)
		if err != nil {
			continue
		}
		ports.Add(uint16(port))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ports, nil
}
