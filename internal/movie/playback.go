package movie

import "famiplay/internal/input"

// Playback replays parsed records in order, one per call to Next.
type Playback struct {
	records []Record
	pos     int
}

// NewPlayback creates a playback over records. The slice is not copied and
// must not be modified afterwards.
func NewPlayback(records []Record) *Playback {
	return &Playback{records: records}
}

// Next returns the next record's input, or false once every record has been
// consumed.
func (p *Playback) Next() (input.Frame, bool) {
	if p.pos >= len(p.records) {
		return input.Frame{}, false
	}
	rec := p.records[p.pos]
	p.pos++
	return input.Frame{Command: rec.Command, Ports: rec.Ports}, true
}

// Position returns the number of records consumed so far.
func (p *Playback) Position() int {
	return p.pos
}

// Len returns the number of records in the movie.
func (p *Playback) Len() int {
	return len(p.records)
}
