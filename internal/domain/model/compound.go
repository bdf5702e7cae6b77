package model

// Compound identifies a tire compound. The codes follow the historical
// timing data: A1 (hardest) through A7 (softest) for slicks, I for
// intermediate and W for full wet.
type Compound string

// Known compounds.
const (
	CompoundA1           Compound = "A1"
	CompoundA2           Compound = "A2"
	CompoundA3           Compound = "A3"
	CompoundA4           Compound = "A4"
	CompoundA6           Compound = "A6"
	CompoundA7           Compound = "A7"
	CompoundIntermediate Compound = "I"
	CompoundWet          Compound = "W"
)

// AllCompounds lists every compound the pace model can encode, in the
// fixed order used for regression indicator variables.
var AllCompounds = []Compound{
	CompoundA1, CompoundA2, CompoundA3, CompoundA4,
	CompoundA6, CompoundA7, CompoundIntermediate, CompoundWet,
}

// Valid reports whether c is a known compound code.
func (c Compound) Valid() bool {
	for _, k := range AllCompounds {
		if c == k {
			return true
		}
	}
	return false
}

// Index returns the position of c in AllCompounds, or -1 when unknown.
func (c Compound) Index() int {
	for i, k := range AllCompounds {
		if c == k {
			return i
		}
	}
	return -1
}
