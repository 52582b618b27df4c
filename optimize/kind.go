package optimize

import "fmt"

// Kind is a family of plan mutations.
type Kind int

const (
	// KindIncreaseFrequency shortens a route's headway.
	KindIncreaseFrequency Kind = iota
	// KindAddStop inserts a nearby stop into a route.
	KindAddStop
	// KindDecreaseFrequency lengthens a route's headway.
	KindDecreaseFrequency
	// KindRemoveStop drops a stop from a route.
	KindRemoveStop
	// KindReplaceStop swaps a stop of a route for a nearby one.
	KindReplaceStop
)

var kindNames = [...]string{
	KindIncreaseFrequency: "increase_frequency",
	KindAddStop:           "add_stop",
	KindDecreaseFrequency: "decrease_frequency",
	KindRemoveStop:        "remove_stop",
	KindReplaceStop:       "replace_stop",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}

	return 0, fmt.Errorf("optimize: unknown kind %q", s)
}

// Parameter grids. Frequency kinds take minutes, stop insertion and
// replacement take a search radius in metres, removal takes none.
var (
	FrequencyGrid = []float64{5, 10, 20}
	RadiusGrid    = []float64{800, 1600, 3200}
	RemoveGrid    = []float64{0}
)

// Grid returns the parameter grid of k.
func (k Kind) Grid() []float64 {
	switch k {
	case KindIncreaseFrequency, KindDecreaseFrequency:
		return FrequencyGrid
	case KindAddStop, KindReplaceStop:
		return RadiusGrid
	default:
		return RemoveGrid
	}
}

// Kinds lists every kind: those that grow scheduled minutes, then those that
// shrink them, then the neutral one.
func Kinds() []Kind {
	return []Kind{KindIncreaseFrequency, KindAddStop, KindDecreaseFrequency, KindRemoveStop, KindReplaceStop}
}

// EligibleKinds returns the kinds allowed for the next iteration. Over budget,
// only kinds that cannot grow scheduled minutes are allowed.
func EligibleKinds(overBudget bool) []Kind {
	if overBudget {
		return []Kind{KindDecreaseFrequency, KindRemoveStop, KindReplaceStop}
	}

	return Kinds()
}
