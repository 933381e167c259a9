package riskmodel

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/model"
)

// regularization applied to every leaf weight (XGBoost-style lambda).
const lambda = 1.0

// TrainConfig holds the boosting hyperparameters.
type TrainConfig struct {
	Rounds        int
	LearningRate  float64
	MaxDepth      int
	MinLeafWeight float64
	Subsample     float64
	Seed          int64
}

// DefaultTrainConfig returns the default hyperparameters.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Rounds:        60,
		LearningRate:  0.15,
		MaxDepth:      3,
		MinLeafWeight: 1.0,
		Subsample:     0.8,
		Seed:          42,
	}
}

func (c TrainConfig) withDefaults() TrainConfig {
	d := DefaultTrainConfig()
	if c.Rounds <= 0 {
		c.Rounds = d.Rounds
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.MinLeafWeight <= 0 {
		c.MinLeafWeight = d.MinLeafWeight
	}
	if c.Subsample <= 0 || c.Subsample > 1 {
		c.Subsample = d.Subsample
	}
	return c
}

// Train fits a boosted ensemble on encoded claims. Labels are the denial
// outcomes. Training is reproducible for a fixed seed and input order,
// and handles class imbalance with inverse-frequency class weights folded
// into the gradients. Returns ErrEmptyTrainingSet on no data. The
// returned artifact carries the encoder version it must be paired with.
func Train(ctx context.Context, x []model.FeatureVector, y []bool, encoderVersion string, cfg TrainConfig) (*ModelArtifact, error) {
	if len(x) == 0 {
		return nil, common.ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("feature/label length mismatch: %d vs %d", len(x), len(y))
	}

	cfg = cfg.withDefaults()
	featureCount := len(x[0])
	for i, v := range x {
		if len(v) != featureCount {
			return nil, fmt.Errorf("feature vector %d has length %d, want %d", i, len(v), featureCount)
		}
	}

	n := len(x)
	positives := 0
	for _, denied := range y {
		if denied {
			positives++
		}
	}

	// Inverse-frequency class weights: denials are typically rare, so
	// each class contributes equal total weight.
	posWeight, negWeight := 1.0, 1.0
	if positives > 0 && positives < n {
		posWeight = float64(n) / (2 * float64(positives))
		negWeight = float64(n) / (2 * float64(n-positives))
	}

	weights := make([]float64, n)
	labels := make([]float64, n)
	weightSum, labelSum := 0.0, 0.0
	for i, denied := range y {
		if denied {
			weights[i] = posWeight
			labels[i] = 1
		} else {
			weights[i] = negWeight
		}
		weightSum += weights[i]
		labelSum += weights[i] * labels[i]
	}

	// Initialize at the weighted log-odds of the base rate.
	baseRate := clampProbability(labelSum / weightSum)
	baseScore := math.Log(baseRate / (1 - baseRate))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = baseScore
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	gradients := make([]float64, n)
	hessians := make([]float64, n)
	trees := make([]*TreeNode, 0, cfg.Rounds)

	for round := 0; round < cfg.Rounds; round++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for i := range x {
			p := sigmoid(scores[i])
			gradients[i] = weights[i] * (p - labels[i])
			hessians[i] = weights[i] * p * (1 - p)
		}

		rows := subsampleRows(rng, n, cfg.Subsample)
		tree := buildTree(x, gradients, hessians, rows, cfg.MaxDepth, cfg.MinLeafWeight)
		trees = append(trees, tree)

		for i := range x {
			scores[i] += cfg.LearningRate * tree.score(x[i])
		}
	}

	return &ModelArtifact{
		Version:        uuid.NewString(),
		EncoderVersion: encoderVersion,
		TrainedAt:      time.Now().UTC(),
		BaseScore:      baseScore,
		LearningRate:   cfg.LearningRate,
		FeatureCount:   featureCount,
		Trees:          trees,
	}, nil
}

func clampProbability(p float64) float64 {
	const eps = 1e-6
	return math.Min(math.Max(p, eps), 1-eps)
}

// subsampleRows draws a deterministic sample of row indices for one
// boosting round, in ascending order so split search stays stable.
func subsampleRows(rng *rand.Rand, n int, fraction float64) []int {
	if fraction >= 1 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}

	k := int(math.Ceil(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// buildTree grows one regression tree greedily on the gradient/hessian
// pairs, maximizing the standard second-order gain.
func buildTree(x []model.FeatureVector, gradients, hessians []float64, rows []int, depth int, minLeafWeight float64) *TreeNode {
	var gSum, hSum float64
	for _, i := range rows {
		gSum += gradients[i]
		hSum += hessians[i]
	}

	leaf := &TreeNode{Leaf: true, Value: -gSum / (hSum + lambda)}
	if depth == 0 || len(rows) < 2 {
		return leaf
	}

	feature, threshold, gain := bestSplit(x, gradients, hessians, rows, gSum, hSum, minLeafWeight)
	if gain <= 0 {
		return leaf
	}

	var left, right []int
	for _, i := range rows {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(x, gradients, hessians, left, depth-1, minLeafWeight),
		Right:     buildTree(x, gradients, hessians, right, depth-1, minLeafWeight),
	}
}

// bestSplit scans every feature's sorted values for the split with the
// highest gain. Features are visited in schema order and ties keep the
// first candidate, so the search is deterministic.
func bestSplit(x []model.FeatureVector, gradients, hessians []float64, rows []int, gSum, hSum, minLeafWeight float64) (feature int, threshold, gain float64) {
	feature = -1
	parentScore := gSum * gSum / (hSum + lambda)

	type sample struct {
		value float64
		g     float64
		h     float64
	}
	samples := make([]sample, len(rows))

	featureCount := len(x[rows[0]])
	for f := 0; f < featureCount; f++ {
		for j, i := range rows {
			samples[j] = sample{value: x[i][f], g: gradients[i], h: hessians[i]}
		}
		sort.Slice(samples, func(a, b int) bool { return samples[a].value < samples[b].value })

		var gLeft, hLeft float64
		for j := 0; j < len(samples)-1; j++ {
			gLeft += samples[j].g
			hLeft += samples[j].h
			if samples[j].value == samples[j+1].value {
				continue
			}
			hRight := hSum - hLeft
			if hLeft < minLeafWeight || hRight < minLeafWeight {
				continue
			}
			gRight := gSum - gLeft
			candidate := gLeft*gLeft/(hLeft+lambda) + gRight*gRight/(hRight+lambda) - parentScore
			if candidate > gain {
				gain = candidate
				feature = f
				threshold = (samples[j].value + samples[j+1].value) / 2
			}
		}
	}

	return feature, threshold, gain
}
