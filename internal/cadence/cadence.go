// Package cadence computes humanized send delays. Constant-interval
// sending is the easiest automation signal to detect, so each account
// gets a per-day throughput pattern and each prospect a jittered delay
// around that pattern's rate.
package cadence

import (
	"math"
	"math/rand"
	"strconv"
	"time"
)

// Source supplies the stochastic component of a delay. It is an interface
// so tests can inject a fixed sequence; everything else about the
// generator is deterministic given (date, account seed).
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// NewRandSource returns a Source backed by math/rand with its own seed.
func NewRandSource() Source {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Pattern is the day's throughput profile for one account.
type Pattern int

const (
	PatternSlow     Pattern = iota // 0-2 msg/hr
	PatternMedium                  // 2-3 msg/hr
	PatternBusy                    // 3-5 msg/hr
	PatternMixed                   // alternates 4-5 and 1-2 msg/hr
	PatternVariable                // 1-4 msg/hr
)

var patternNames = map[Pattern]string{
	PatternSlow:     "slow",
	PatternMedium:   "medium",
	PatternBusy:     "busy",
	PatternMixed:    "mixed",
	PatternVariable: "variable",
}

func (p Pattern) String() string { return patternNames[p] }

// PatternFor derives the day's pattern from the calendar date and a stable
// per-account seed. The same account sends at the same character of pace
// all day, and switches character the next day.
func PatternFor(date time.Time, accountSeed string) Pattern {
	num, _ := strconv.Atoi(date.Format("20060102"))
	seed := num
	if accountSeed != "" {
		seed += int(accountSeed[0])
	}
	return Pattern(seed % 5)
}

// hourlyRate draws a messages-per-hour rate for one prospect position
// within the pattern's range.
func (p Pattern) hourlyRate(index int, src Source) float64 {
	switch p {
	case PatternSlow:
		return src.Float64() * 2
	case PatternMedium:
		return 2 + src.Float64()
	case PatternBusy:
		return 3 + src.Float64()*2
	case PatternMixed:
		if index%2 == 0 {
			return 4 + src.Float64()
		}
		return 1 + src.Float64()
	default: // PatternVariable
		return 1 + src.Float64()*3
	}
}

// Generator computes per-prospect delays with symmetric jitter and a
// safety clamp band.
type Generator struct {
	src      Source
	minDelay int // minutes
	maxDelay int // minutes
}

// New creates a Generator with the standard 2-20 minute clamp band.
// A nil src gets a time-seeded math/rand source.
func New(src Source) *Generator {
	if src == nil {
		src = NewRandSource()
	}
	return &Generator{src: src, minDelay: 2, maxDelay: 20}
}

// NewWithBand creates a Generator with an explicit clamp band, for
// workspaces with stricter pacing requirements.
func NewWithBand(src Source, minDelay, maxDelay int) *Generator {
	g := New(src)
	if minDelay > 0 && maxDelay >= minDelay {
		g.minDelay = minDelay
		g.maxDelay = maxDelay
	}
	return g
}

// DelayMinutes computes the delay before sending the prospect at the given
// batch position. When firstImmediate is set, position 0 gets no delay
// (single-item dispatches fire right away).
func (g *Generator) DelayMinutes(p Pattern, index int, firstImmediate bool) int {
	if index == 0 && firstImmediate {
		return 0
	}

	rate := p.hourlyRate(index, g.src)
	variation := (g.src.Float64() - 0.5) * 0.6 // ±30%

	// Very low draws on the slow pattern would mean hours between sends;
	// the clamp band is the floor and ceiling either way.
	if rate < 60.0/float64(g.maxDelay) {
		return g.maxDelay
	}

	avgMinutes := 60 / rate
	delay := int(math.Round(avgMinutes * (1 + variation)))

	if delay < g.minDelay {
		return g.minDelay
	}
	if delay > g.maxDelay {
		return g.maxDelay
	}
	return delay
}

// BatchDelays computes delays for n prospects in selection order.
func (g *Generator) BatchDelays(p Pattern, n int, firstImmediate bool) []int {
	delays := make([]int, n)
	for i := range delays {
		delays[i] = g.DelayMinutes(p, i, firstImmediate)
	}
	return delays
}

// SendTimes converts per-prospect delays into absolute timestamps:
// now plus the cumulative delay up to and including each position.
// The result is non-decreasing, preserving selection order.
func SendTimes(now time.Time, delays []int) []time.Time {
	times := make([]time.Time, len(delays))
	cum := 0
	for i, d := range delays {
		cum += d
		times[i] = now.Add(time.Duration(cum) * time.Minute)
	}
	return times
}
