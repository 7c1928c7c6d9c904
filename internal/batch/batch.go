// Package batch splits a flat list of descriptors into contiguous batches
// and assigns each a local port by position within the batch.
package batch

import "github.com/draco-tlw/rayzor/internal/descriptor"

// Slot is one descriptor bound to a local inbound port within a batch.
type Slot struct {
	Index      int
	Port       int
	Descriptor descriptor.LinkedDescriptor
}

// Batch is one contiguous, serially-tested group of slots.
type Batch struct {
	Number int
	Slots  []Slot
}

// Plan partitions descriptors into batches of at most size, assigning slot
// i within a batch the local port basePort+i. Ports intentionally overlap
// across batches since batches never run concurrently.
func Plan(descriptors []descriptor.LinkedDescriptor, size, basePort int) []Batch {
	if size <= 0 {
		size = len(descriptors)
		if size == 0 {
			size = 1
		}
	}

	var batches []Batch
	for start := 0; start < len(descriptors); start += size {
		end := start + size
		if end > len(descriptors) {
			end = len(descriptors)
		}
		chunk := descriptors[start:end]

		slots := make([]Slot, len(chunk))
		for i, ld := range chunk {
			slots[i] = Slot{Index: i, Port: basePort + i, Descriptor: ld}
		}

		batches = append(batches, Batch{Number: len(batches) + 1, Slots: slots})
	}
	return batches
}
