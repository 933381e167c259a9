package model

// FeatureVector is an ordered numeric representation of one claim under a
// fixed, versioned schema. Length and field semantics are identical for
// every vector produced by a single encoder version.
type FeatureVector []float64

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}
