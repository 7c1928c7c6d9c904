package batch

import (
	"testing"

	"github.com/draco-tlw/rayzor/internal/descriptor"
)

func makeDescriptors(n int) []descriptor.LinkedDescriptor {
	out := make([]descriptor.LinkedDescriptor, n)
	for i := range out {
		out[i] = descriptor.LinkedDescriptor{Link: string(rune('a' + i))}
	}
	return out
}

func TestPlan_SplitsIntoContiguousBatches(t *testing.T) {
	descriptors := makeDescriptors(600)
	batches := Plan(descriptors, 500, 11000)

	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0].Slots) != 500 || len(batches[1].Slots) != 100 {
		t.Errorf("batch sizes = %d, %d", len(batches[0].Slots), len(batches[1].Slots))
	}
	if batches[0].Slots[0].Descriptor.Link != "a" {
		t.Errorf("batch order not preserved")
	}
}

func TestPlan_PortAssignment(t *testing.T) {
	descriptors := makeDescriptors(5)
	batches := Plan(descriptors, 500, 11000)

	seen := map[int]bool{}
	for i, slot := range batches[0].Slots {
		if slot.Port != 11000+i {
			t.Errorf("slot %d port = %d, want %d", i, slot.Port, 11000+i)
		}
		if seen[slot.Port] {
			t.Errorf("duplicate port %d within batch", slot.Port)
		}
		seen[slot.Port] = true
	}
}

func TestPlan_PortsReusedAcrossBatches(t *testing.T) {
	descriptors := makeDescriptors(600)
	batches := Plan(descriptors, 500, 11000)

	if batches[0].Slots[0].Port != batches[1].Slots[0].Port {
		t.Errorf("expected base port reused across batches: %d vs %d",
			batches[0].Slots[0].Port, batches[1].Slots[0].Port)
	}
}

func TestPlan_Empty(t *testing.T) {
	if batches := Plan(nil, 500, 11000); len(batches) != 0 {
		t.Errorf("expected no batches for empty input, got %d", len(batches))
	}
}
