package domain

import "fmt"

// Mode describes how an inducer's doses map onto plate geometry.
type Mode string

const (
	// ModeRows repeats the dose series along every row; doses are indexed by column.
	ModeRows Mode = "rows"
	// ModeCols repeats the dose series down every column; doses are indexed by row.
	ModeCols Mode = "cols"
	// ModeWells assigns one dose per measured sample in row-major order.
	ModeWells Mode = "wells"
	// ModeMedia adds a single dose to the bulk media of the whole plate.
	ModeMedia Mode = "media"
)

// Modes lists every application mode in rendering order.
var Modes = []Mode{ModeRows, ModeCols, ModeWells, ModeMedia}

// Valid reports whether m is a known application mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeRows, ModeCols, ModeWells, ModeMedia:
		return true
	}
	return false
}

// ParseMode converts s into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", ConfigError{Subject: "mode", Reason: fmt.Sprintf("unknown application mode %q", s)}
	}
	return m, nil
}
