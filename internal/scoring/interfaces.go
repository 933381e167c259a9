package scoring

import (
	"context"

	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/riskmodel"
)

// Predictor defines the contract for the denial-risk inference step. It
// is the one operation the orchestrator bounds with a timeout.
type Predictor interface {
	Predict(ctx context.Context, v model.FeatureVector, artifact *riskmodel.ModelArtifact) (float64, error)
}

// InProcessPredictor runs the ensemble in-process.
type InProcessPredictor struct{}

// Predict evaluates the artifact directly; the context is accepted to
// satisfy the contract but never consulted since evaluation is pure CPU.
func (InProcessPredictor) Predict(_ context.Context, v model.FeatureVector, artifact *riskmodel.ModelArtifact) (float64, error) {
	return riskmodel.Predict(v, artifact)
}
