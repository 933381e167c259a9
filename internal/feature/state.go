// Package feature transforms raw claim records into fixed-schema numeric
// vectors, with encoding parameters frozen at fit time so training and
// inference apply byte-for-byte identical preprocessing.
package feature

import (
	"sort"
	"time"
)

// NumericField holds the standardization parameters for one numeric input.
type NumericField struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// CategoricalField holds the frozen vocabulary for one categorical input.
// Vocab is sorted, so column offsets are deterministic.
type CategoricalField struct {
	Name  string   `json:"name"`
	Vocab []string `json:"vocab"`
}

// columnFor returns the indicator column offset for a category within
// the field's block, or -1 for a category unseen at fit time.
func (f CategoricalField) columnFor(value string) int {
	i := sort.SearchStrings(f.Vocab, value)
	if i < len(f.Vocab) && f.Vocab[i] == value {
		return i
	}
	return -1
}

// EncoderState is the persisted output of one fitting pass: vocabularies,
// scaling parameters, and the versioned feature schema. It is immutable
// once Fit returns and is shared read-only by training and inference.
type EncoderState struct {
	Version     string             `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	Numeric     []NumericField     `json:"numeric"`
	Categorical []CategoricalField `json:"categorical"`
}

// Len returns the feature vector length the schema produces.
func (s *EncoderState) Len() int {
	n := len(s.Numeric)
	for _, f := range s.Categorical {
		n += len(f.Vocab)
	}
	return n
}

// FeatureNames returns the ordered column names: numeric fields first,
// then one indicator column per vocabulary entry.
func (s *EncoderState) FeatureNames() []string {
	names := make([]string, 0, s.Len())
	for _, f := range s.Numeric {
		names = append(names, f.Name)
	}
	for _, f := range s.Categorical {
		for _, v := range f.Vocab {
			names = append(names, f.Name+"="+v)
		}
	}
	return names
}
