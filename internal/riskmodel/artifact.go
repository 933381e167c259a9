// Package riskmodel trains and serves the denial-risk classifier: a
// gradient-boosted ensemble of depth-limited regression trees on logistic
// loss. Callers treat the model as an opaque artifact behind Predict;
// nothing outside this package depends on the learning algorithm.
package riskmodel

import (
	"fmt"
	"math"
	"time"

	"github.com/ledgerline/arclaim/internal/model"
)

// TreeNode is one node of a regression tree. Leaf nodes carry Value;
// internal nodes route on Feature against Threshold (left when the
// feature value is <= Threshold).
type TreeNode struct {
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Value     float64   `json:"value"`
	Leaf      bool      `json:"leaf"`
}

func (n *TreeNode) score(v model.FeatureVector) float64 {
	for !n.Leaf {
		if v[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// ModelArtifact is a trained classifier plus the encoder version it was
// trained against. The pairing is validated at publish and predict time;
// an artifact is never used with encoder state from a different run.
type ModelArtifact struct {
	Version        string      `json:"version"`
	EncoderVersion string      `json:"encoder_version"`
	TrainedAt      time.Time   `json:"trained_at"`
	BaseScore      float64     `json:"base_score"`
	LearningRate   float64     `json:"learning_rate"`
	FeatureCount   int         `json:"feature_count"`
	Trees          []*TreeNode `json:"trees"`
}

// Predict returns the denial probability for one encoded claim. It is a
// pure function of the vector and artifact: no hidden state, no
// re-fitting, no I/O. Errors on a vector whose length does not match the
// artifact's training schema.
func Predict(v model.FeatureVector, artifact *ModelArtifact) (float64, error) {
	if len(v) != artifact.FeatureCount {
		return 0, fmt.Errorf("feature vector length %d does not match model schema %d", len(v), artifact.FeatureCount)
	}

	raw := artifact.BaseScore
	for _, tree := range artifact.Trees {
		raw += artifact.LearningRate * tree.score(v)
	}

	return sigmoid(raw), nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
