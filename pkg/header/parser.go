// Package header parses LabView experiment header (.ini) files and exposes
// their contents through a version-aware Header model. The acquisition
// software has gone through several incompatible schema generations; this
// package detects which generation wrote a header and normalises access to
// the imaging mode, imaging parameters and trial boundaries.
package header

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Warnf is called for recoverable parse problems, one call per offending
// line. It can be replaced in tests to capture warnings.
var Warnf = log.Printf

// RawField is one (section, key, value) triple exactly as read from the
// header file, without type coercion. The full ordered list is kept so the
// original header can be stored verbatim for provenance.
type RawField struct {
	Section string
	Key     string
	Value   string
}

// TableRow is one legacy tab-delimited numeric line inside a section: an
// integer line index and its value. Rows keep file order.
type TableRow struct {
	Index int
	Value float64
}

// Section holds the parsed contents of one [SECTION] block.
type Section struct {
	// Values maps key to the parsed value: float64 if the text parses as
	// a number, otherwise a string with matching surrounding double
	// quotes stripped.
	Values map[string]any

	// Rows holds any tab-delimited numeric table lines found in the
	// section, in file order.
	Rows []TableRow
}

// Float returns the named value as a float64, if present and numeric.
func (s *Section) Float(key string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	f, ok := s.Values[key].(float64)
	return f, ok
}

// String returns the named value as a string, if present and non-numeric.
func (s *Section) String(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	str, ok := s.Values[key].(string)
	return str, ok
}

// Document is the result of parsing a header file: the raw field triples in
// file order, plus the sections with typed values. Documents are built once
// by ParseFile and read-only afterwards.
type Document struct {
	Path     string
	Fields   []RawField
	Sections map[string]*Section
}

// Section returns the named section, or nil if the header does not have it.
func (d *Document) Section(name string) *Section {
	return d.Sections[name]
}

// ParseFile reads a LabView header file and classifies every line.
//
// A line starting with '[' opens a new section. A line containing '=' is a
// key/value pair; the value is float-coerced when possible, otherwise kept
// as a string with matching surrounding double quotes removed. A line
// containing a tab is a legacy numeric table row. Any other non-blank line
// is unrecognised: it is reported through Warnf and skipped, never failing
// the parse. A missing file is a hard error.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open header file: %v", err)
	}
	defer f.Close()

	doc := &Document{
		Path:     path,
		Sections: make(map[string]*Section),
	}
	section := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case len(line) == 0:
			// Blank lines carry no information.
		case strings.HasPrefix(line, "["):
			section = strings.TrimSuffix(line[1:], "]")
			if doc.Sections[section] == nil {
				doc.Sections[section] = &Section{Values: make(map[string]any)}
			}
		case strings.Contains(line, "="):
			key, value, _ := strings.Cut(line, "=")
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			doc.Fields = append(doc.Fields, RawField{section, key, value})
			doc.section(section).Values[key] = coerceValue(value)
		case strings.Contains(line, "\t"):
			idxText, valText, _ := strings.Cut(line, "\t")
			idx, idxErr := strconv.ParseFloat(strings.TrimSpace(idxText), 64)
			val, valErr := strconv.ParseFloat(strings.TrimSpace(valText), 64)
			if idxErr != nil || valErr != nil {
				Warnf("unrecognised non-blank line in %s: %q", path, line)
				continue
			}
			doc.Fields = append(doc.Fields, RawField{section, idxText, valText})
			sec := doc.section(section)
			sec.Rows = append(sec.Rows, TableRow{Index: int(idx), Value: val})
		default:
			Warnf("unrecognised non-blank line in %s: %q", path, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header file: %v", err)
	}
	return doc, nil
}

// section returns the named section, creating it if a key/value or table
// line appears before any [SECTION] marker.
func (d *Document) section(name string) *Section {
	sec := d.Sections[name]
	if sec == nil {
		sec = &Section{Values: make(map[string]any)}
		d.Sections[name] = sec
	}
	return sec
}

// coerceValue converts a raw header value to its typed form: float64 when
// the text parses as a number, otherwise a string with matching surrounding
// double quotes stripped.
func coerceValue(value string) any {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	return value
}
