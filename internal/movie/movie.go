// Package movie reads recorded input movies (FCEUX .fm2 input logs) and
// replays them one frame at a time.
package movie

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"famiplay/internal/input"
)

// lineRE matches one input line: |commands|port0|port1||
var lineRE = regexp.MustCompile(`^\|(\d+)\|([RLDUTSBA.]{8})\|([RLDUTSBA.]{8})\|\|$`)

// Record is the input of one recorded frame.
type Record struct {
	// Frame is the ordinal of the record among the input lines of the file.
	Frame   int
	Command input.Command
	Ports   [input.Ports]input.Mask
}

// Header holds the "key value" metadata lines found before the input log.
type Header map[string]string

// Parse reads every input line from r. Lines that do not follow the input
// grammar are skipped; only a read error is reported.
func Parse(r io.Reader) ([]Record, error) {
	records, _, err := ParseWithHeader(r)
	return records, err
}

// ParseWithHeader is Parse that also collects metadata lines.
func ParseWithHeader(r io.Reader) ([]Record, Header, error) {
	var records []Record
	header := make(Header)

	br := bufio.NewReader(r)
	for {
		// Lines have no length limit; savestate headers run to megabytes.
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, nil, fmt.Errorf("movie: %w", err)
		}
		if raw == "" && err == io.EOF {
			break
		}
		line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")

		if rec, ok := parseLine(line); ok {
			rec.Frame = len(records)
			records = append(records, rec)
			continue
		}

		if key, value, ok := strings.Cut(line, " "); ok && len(records) == 0 && key != "" && !strings.HasPrefix(key, "|") {
			header[key] = value
		}
		if err == io.EOF {
			break
		}
	}

	return records, header, nil
}

// ParseFile parses the movie at path.
func ParseFile(path string) ([]Record, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return ParseWithHeader(f)
}

func parseLine(line string) (Record, bool) {
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}

	// A command field too wide for 32 bits cannot be a real recording.
	cmd, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return Record{}, false
	}

	rec := Record{Command: input.Command(cmd)}
	for port, field := range m[2:4] {
		rec.Ports[port] = decodeField(field)
	}
	return rec, true
}

// decodeField maps a controller field to its mask. The regular expression
// has already limited the alphabet, so a decode error is a parser bug.
func decodeField(field string) input.Mask {
	mask, err := input.ParseGlyphs(field)
	if err != nil {
		panic(fmt.Sprintf("movie: field %q passed the line grammar: %v", field, err))
	}
	return mask
}
