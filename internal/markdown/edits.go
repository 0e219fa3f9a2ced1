package markdown

import (
	"errors"
	"fmt"
	"sort"
)

// Edit is a targeted byte-range replacement: source[Start:End) is replaced by
// Replacement. Offsets refer to the original source.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// ApplyEdits applies non-overlapping edits to source.
//
// Edits are applied from the end of the input toward the beginning so earlier
// edits do not invalidate later offsets.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })

	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, fmt.Errorf("invalid edit[%d]: range [%d,%d) out of bounds", i, e.Start, e.End)
		}
		if i > 0 && e.End > sorted[i-1].Start {
			return nil, errors.New("invalid edits: overlapping ranges")
		}
	}

	out := append([]byte(nil), source...)
	for _, e := range sorted {
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Replacement))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Replacement...)
		next = append(next, out[e.End:]...)
		out = next
	}
	return out, nil
}
