package synthesis

// Tier is the coverage class assigned to a node from its relevant-file count.
type Tier string

const (
	TierSmall  Tier = "small"  // ≤50 files: full coverage
	TierMedium Tier = "medium" // ≤300 files: prioritized critical paths
	TierLarge  Tier = "large"  // >300 files: tiered sampling
)

// Budget is the per-tier acceptance floor for a generated draft.
type Budget struct {
	MinWords    int
	MaxWords    int
	MinDiagrams int
	MinKinds    int // distinct diagram kinds
}

// CitationFloor is the minimum number of distinct cited source files per
// page. Nodes that genuinely touch fewer files get the floor relaxed to
// their relevant-file count; it is never met by fabrication.
const CitationFloor = 5

// TierFor maps a relevant-file count to its coverage tier.
func TierFor(relevantFiles int) Tier {
	switch {
	case relevantFiles <= 50:
		return TierSmall
	case relevantFiles <= 300:
		return TierMedium
	default:
		return TierLarge
	}
}

// BudgetFor returns the word/diagram budget of a tier.
func BudgetFor(t Tier) Budget {
	switch t {
	case TierSmall:
		return Budget{MinWords: 2000, MaxWords: 3000, MinDiagrams: 3, MinKinds: 2}
	case TierMedium:
		return Budget{MinWords: 3000, MaxWords: 5000, MinDiagrams: 4, MinKinds: 3}
	default:
		return Budget{MinWords: 5000, MaxWords: 8000, MinDiagrams: 5, MinKinds: 4}
	}
}

// sampleCap bounds how many files are handed to the generator for a large
// node. Selection is deterministic: priority buckets in order (entry points,
// domain models, data access, integration edges), each sorted by path.
const sampleCap = 300
