// Package led drives a status LED from the camera session state.
package led

import "fmt"

// Pattern is what the status LED shows.
type Pattern int

// Patterns.
const (
	PatternOff Pattern = iota
	PatternBlink
	PatternSolid
)

func (p Pattern) String() string {
	switch p {
	case PatternOff:
		return "off"
	case PatternBlink:
		return "blink"
	case PatternSolid:
		return "solid"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// Controller sets the LED pattern. Implementations are safe for use from
// the event bus goroutines.
type Controller interface {
	Set(p Pattern) error
	Close() error
}
