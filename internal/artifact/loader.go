package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"SolanaPredictor/internal/model"
	"SolanaPredictor/internal/trainer"
)

// Predictor is a loaded artifact. Each caller owns its handle; reload to pick up a new model.
type Predictor struct {
	model  *trainer.Model
	scaler *trainer.Scaler
	info   model.ModelInfo
}

// Load reads the metrics document, then both blobs, and checks the blobs against the
// recorded digests. A mismatch means a rotation happened between reads and returns
// ErrArtifactMismatch; callers may retry.
func Load(dir string) (*Predictor, error) {
	infoData, err := os.ReadFile(filepath.Join(dir, MetricsFile))
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	var info model.ModelInfo
	if err := json.Unmarshal(infoData, &info); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}

	modelData, err := os.ReadFile(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	scalerData, err := os.ReadFile(filepath.Join(dir, ScalerFile))
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	if digest(modelData) != info.Artifacts.ModelSHA256 {
		return nil, fmt.Errorf("%w: %s", model.ErrArtifactMismatch, ModelFile)
	}
	if digest(scalerData) != info.Artifacts.ScalerSHA256 {
		return nil, fmt.Errorf("%w: %s", model.ErrArtifactMismatch, ScalerFile)
	}

	p := &Predictor{info: info}
	if err := json.Unmarshal(modelData, &p.model); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := json.Unmarshal(scalerData, &p.scaler); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if p.model == nil || p.model.Forest == nil || p.scaler == nil {
		return nil, fmt.Errorf("decode artifact: empty model or scaler")
	}
	if !slices.Equal(info.Features, p.model.FeatureNames) {
		return nil, fmt.Errorf("%w: feature list differs between metrics and model", model.ErrArtifactMismatch)
	}
	return p, nil
}

// Predict returns the next-day close for a vector ordered as FeatureNames.
func (p *Predictor) Predict(vec []float64) (float64, error) {
	return trainer.Predict(p.model, p.scaler, vec)
}

// PredictRow predicts from an assembled feature row.
func (p *Predictor) PredictRow(r model.FeatureRow) (float64, error) {
	return p.Predict(r.Vector())
}

// FeatureNames returns the ordered feature list the model was trained on.
func (p *Predictor) FeatureNames() []string {
	return slices.Clone(p.info.Features)
}

// Info returns the metrics document.
func (p *Predictor) Info() model.ModelInfo {
	return p.info
}
