package riskmodel

import (
	"fmt"
	"sort"

	"github.com/ledgerline/arclaim/internal/model"
)

// Evaluation summarizes holdout performance for a trained artifact.
type Evaluation struct {
	Count     int
	Positives int
	Accuracy  float64
	AUC       float64
}

// Evaluate scores a labeled holdout set and reports accuracy at the 0.5
// threshold plus ROC AUC.
func Evaluate(x []model.FeatureVector, y []bool, artifact *ModelArtifact) (Evaluation, error) {
	if len(x) != len(y) {
		return Evaluation{}, fmt.Errorf("feature/label length mismatch: %d vs %d", len(x), len(y))
	}

	eval := Evaluation{Count: len(x)}
	probs := make([]float64, len(x))
	correct := 0

	for i, v := range x {
		p, err := Predict(v, artifact)
		if err != nil {
			return Evaluation{}, err
		}
		probs[i] = p
		if y[i] {
			eval.Positives++
		}
		if (p >= 0.5) == y[i] {
			correct++
		}
	}

	if eval.Count > 0 {
		eval.Accuracy = float64(correct) / float64(eval.Count)
	}
	eval.AUC = rocAUC(probs, y)

	return eval, nil
}

// rocAUC computes the area under the ROC curve via the rank statistic,
// splitting ties evenly. Returns 0.5 when only one class is present.
func rocAUC(probs []float64, y []bool) float64 {
	type scored struct {
		p   float64
		pos bool
	}
	items := make([]scored, len(probs))
	for i, p := range probs {
		items[i] = scored{p: p, pos: y[i]}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].p < items[b].p })

	var positives, negatives int
	var rankSum float64
	i := 0
	for i < len(items) {
		j := i
		for j < len(items) && items[j].p == items[i].p {
			j++
		}
		// Average rank for the tie group (1-based ranks).
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if items[k].pos {
				rankSum += avgRank
			}
		}
		i = j
	}
	for _, it := range items {
		if it.pos {
			positives++
		} else {
			negatives++
		}
	}

	if positives == 0 || negatives == 0 {
		return 0.5
	}
	u := rankSum - float64(positives)*float64(positives+1)/2
	return u / (float64(positives) * float64(negatives))
}
