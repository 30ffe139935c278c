// internal/poller/env.go
package poller

import (
	"math"
	"strconv"
	"strings"
)

// rawRef resolves CH<n> against the raw map. ok is false for numbers that
// are not configured channels; configured channels that were never read
// resolve to NaN.
func rawRef(name string, raw map[int]float64, known map[int]bool) (float64, bool) {
	if len(name) < 3 || !strings.EqualFold(name[:2], "CH") {
		return 0, false
	}
	n, err := strconv.Atoi(name[2:])
	if err != nil || !known[n] {
		return 0, false
	}
	if v, ok := raw[n]; ok {
		return v, true
	}
	return math.NaN(), true
}

// channelEnv is the environment of a channel formula: x is the channel's
// own raw value, CH<n> and address tokens resolve to raw values.
type channelEnv struct {
	x      float64
	raw    map[int]float64
	known  map[int]bool
	owners map[int]int // configured address -> channel number
}

func (e *channelEnv) Lookup(name string) (float64, bool) {
	if name == "x" {
		return e.x, true
	}
	return rawRef(name, e.raw, e.known)
}

func (e *channelEnv) LookupAddress(addr int) (float64, bool) {
	n, ok := e.owners[addr]
	if !ok {
		return 0, false
	}
	if v, ok := e.raw[n]; ok {
		return v, true
	}
	return math.NaN(), true
}

// mathEnv extends channel resolution with names: math channel results of
// this cycle first, then channel display names. A channel name resolves to
// the same raw value as its address token and CH<n>.
type mathEnv struct {
	channelEnv
	math  map[string]float64
	named map[string]float64
}

func (e *mathEnv) Lookup(name string) (float64, bool) {
	if v, ok := e.math[name]; ok {
		return v, true
	}
	if v, ok := e.named[name]; ok {
		return v, true
	}
	return rawRef(name, e.raw, e.known)
}
