// Package dedup reduces an ordered sequence of raw links to one
// representative per fingerprint, preserving first-seen order.
package dedup

import "github.com/draco-tlw/rayzor/internal/fingerprint"

// Report summarizes one deduplication pass.
type Report struct {
	InputCount   int
	KeptCount    int
	DroppedCount int
}

// Dedupe keeps the first link for each distinct fingerprint and drops links
// whose fingerprint cannot be computed (fingerprint.Of returns "").
func Dedupe(links []string) ([]string, Report) {
	seen := make(map[string]struct{}, len(links))
	kept := make([]string, 0, len(links))

	for _, link := range links {
		fp := fingerprint.Of(link)
		if fp == "" {
			continue
		}
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		kept = append(kept, link)
	}

	return kept, Report{
		InputCount:   len(links),
		KeptCount:    len(kept),
		DroppedCount: len(links) - len(kept),
	}
}
