// Package retry drives the multi-round contraction of a residual set of
// still-failing descriptors: each round probes whatever is left and the
// next round's input is only what failed this time.
package retry

import "github.com/draco-tlw/rayzor/internal/descriptor"

// RoundFunc probes one round's worth of descriptors and returns the probe
// outcome per link, success true meaning the link is now confirmed active.
type RoundFunc func(round int, pending []descriptor.LinkedDescriptor) map[string]bool

// Run executes up to maxRounds rounds of roundFn over pending, removing by
// raw link identity anything a round marks successful, and stopping early
// once nothing is left to retry.
func Run(pending []descriptor.LinkedDescriptor, maxRounds int, roundFn RoundFunc) {
	for round := 1; round <= maxRounds; round++ {
		if len(pending) == 0 {
			return
		}

		outcomes := roundFn(round, pending)

		next := make([]descriptor.LinkedDescriptor, 0, len(pending))
		for _, ld := range pending {
			if !outcomes[ld.Link] {
				next = append(next, ld)
			}
		}
		pending = next
	}
}
