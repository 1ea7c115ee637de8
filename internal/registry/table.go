package registry

import (
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/Johnr24/portpick/internal/portset"
)

// portColumn is the header the IANA assignments CSV uses for port values.
const portColumn = "Port Number"

// ErrMissingPortColumn reports a CSV source without a "Port Number" header.
// This is a structural failure: the caller must fall back to another source
// rather than treat the registry as empty.
var ErrMissingPortColumn = errors.New(`missing "Port Number" column`)

// TableParser extracts ports from tabular registries. Cells hold either a
// single port ("8080") or an inclusive range ("1024-1028", hyphen or
// en-dash); anything else is ignored.
type TableParser struct {
	cellRe *regexp.Regexp
}

func NewTableParser() *TableParser {
	return &TableParser{
		cellRe: regexp.MustCompile(`^\s*(\d{1,5})\s*[-\x{2013}]\s*(\d{1,5})\s*$|^\s*(\d{1,5})\s*$`),
	}
}

// ParseCSV reads an IANA-style CSV and collects every port mentioned in the
// "Port Number" column. The column is required; its absence returns
// ErrMissingPortColumn. Malformed cells and reversed ranges are dropped.
func (t *TableParser) ParseCSV(r io.Reader) (portset.Set, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrMissingPortColumn
		}
		return nil, err
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == portColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrMissingPortColumn
	}

	ports := portset.New()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A mangled row loses only itself, not the whole registry.
			continue
		}
		if col >= len(record) {
			continue
		}
		t.addCell(ports, record[col])
	}
	return ports, nil
}

// ParseHTML collects ports from every table cell of an HTML document whose
// text matches a port or port range. Non-numeric cells are ignored, so the
// surrounding prose of a page like Wikipedia's port list contributes nothing.
func (t *TableParser) ParseHTML(r io.Reader) (portset.Set, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	ports := portset.New()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
			t.addCell(ports, cellText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return ports, nil
}

// addCell parses one cell value into the set. Ranges expand to every port in
// [start, end]; a reversed range is discarded as malformed.
func (t *TableParser) addCell(ports portset.Set, cell string) {
	m := t.cellRe.FindStringSubmatch(cell)
	if m == nil {
		return
	}
	if m[3] != "" {
		if port, err := strconv.ParseUint(m[3], 10, 16); err == nil {
			ports.Add(uint16(port))
		}
		return
	}
	start, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return
	}
	end, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return
	}
	if start > end {
		return
	}
	ports.AddRange(uint16(start), uint16(end))
}

func cellText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
