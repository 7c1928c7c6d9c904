package retry

import (
	"testing"

	"github.com/draco-tlw/rayzor/internal/descriptor"
)

func links(ss ...string) []descriptor.LinkedDescriptor {
	out := make([]descriptor.LinkedDescriptor, len(ss))
	for i, s := range ss {
		out[i] = descriptor.LinkedDescriptor{Link: s}
	}
	return out
}

func TestRun_ContractsResidualSetAcrossRounds(t *testing.T) {
	pending := links("a", "b", "c")
	var roundsSeen [][]string

	roundFn := func(round int, in []descriptor.LinkedDescriptor) map[string]bool {
		var seen []string
		for _, ld := range in {
			seen = append(seen, ld.Link)
		}
		roundsSeen = append(roundsSeen, seen)

		switch round {
		case 1:
			return map[string]bool{"a": true}
		case 2:
			return map[string]bool{"b": true}
		default:
			return map[string]bool{"c": true}
		}
	}

	Run(pending, 3, roundFn)

	if len(roundsSeen) != 3 {
		t.Fatalf("expected 3 rounds, got %d", len(roundsSeen))
	}
	if len(roundsSeen[0]) != 3 || len(roundsSeen[1]) != 2 || len(roundsSeen[2]) != 1 {
		t.Errorf("residual sizes = %v", []int{len(roundsSeen[0]), len(roundsSeen[1]), len(roundsSeen[2])})
	}
}

func TestRun_StopsEarlyWhenResidualEmpty(t *testing.T) {
	pending := links("a")
	calls := 0

	roundFn := func(round int, in []descriptor.LinkedDescriptor) map[string]bool {
		calls++
		return map[string]bool{"a": true}
	}

	Run(pending, 5, roundFn)

	if calls != 1 {
		t.Errorf("expected exactly 1 round before early stop, got %d", calls)
	}
}

func TestRun_NeverCalledOnEmptyInput(t *testing.T) {
	calls := 0
	Run(nil, 3, func(round int, in []descriptor.LinkedDescriptor) map[string]bool {
		calls++
		return nil
	})
	if calls != 0 {
		t.Errorf("expected 0 calls for empty input, got %d", calls)
	}
}
