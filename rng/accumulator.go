package rng

import (
	"github.com/bwesterb/go-cryptocore/algo"
)

// Collects entropy into a MAC and keeps an estimate of how many bits
// have been gathered towards a goal.
type Accumulator struct {
	sink      algo.MAC
	goal      int
	collected float64
}

func newAccumulator(sink algo.MAC, goal int) *Accumulator {
	return &Accumulator{sink: sink, goal: goal}
}

// Adds input, estimated to carry bitsPerByte bits of entropy per byte.
// Estimates above 8 are capped.
func (a *Accumulator) Add(input []byte, bitsPerByte float64) {
	if len(input) == 0 {
		return
	}
	if bitsPerByte > 8 {
		bitsPerByte = 8
	}
	if bitsPerByte < 0 {
		bitsPerByte = 0
	}
	a.sink.Write(input)
	a.collected += float64(len(input)) * bitsPerByte
}

// Estimated number of bits of entropy collected so far.
func (a *Accumulator) BitsCollected() int {
	return int(a.collected)
}

// Bits still needed to reach the goal.
func (a *Accumulator) RemainingBits() int {
	if rem := a.goal - a.BitsCollected(); rem > 0 {
		return rem
	}
	return 0
}

func (a *Accumulator) GoalAchieved() bool {
	return a.BitsCollected() >= a.goal
}
