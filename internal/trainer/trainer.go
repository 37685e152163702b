// Package trainer fits the scaler and regressor on a chronological split and evaluates them.
package trainer

import (
	"fmt"

	"SolanaPredictor/internal/forest"
	"SolanaPredictor/internal/model"
)

// Config controls the split and the regressor.
type Config struct {
	SplitRatio      float64
	MinSamples      int
	TargetMode      string
	Hyperparameters model.Hyperparameters
}

// Result is a fitted model with its scaler and evaluation.
type Result struct {
	Model        *Model
	Scaler       *Scaler
	Metrics      model.EvalMetrics
	TrainSamples int
	TestSamples  int
}

// Train splits ds by position, fits the scaler on the train partition only,
// fits the forest and evaluates both partitions.
func Train(ds *model.Dataset, cfg Config) (*Result, error) {
	n := ds.Len()
	need := minRowsForSplit(cfg.SplitRatio)
	if cfg.MinSamples > need {
		need = cfg.MinSamples
	}
	if n < need {
		return nil, &model.InsufficientDataError{Got: n, Need: need}
	}

	train, test := ds.Split(cfg.SplitRatio)
	if train.Len() == 0 || test.Len() == 0 {
		return nil, &model.InsufficientDataError{Got: n, Need: need}
	}

	xTrain, yTrain := train.Matrix()
	xTest, yTest := test.Matrix()

	scaler, err := FitScaler(xTrain, ds.FeatureNames)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	xs, err := scaler.TransformAll(xTrain)
	if err != nil {
		return nil, fmt.Errorf("scale train: %w", err)
	}

	mode := cfg.TargetMode
	if mode == "" {
		mode = TargetDelta
	}
	m := &Model{
		TargetMode:   mode,
		BaseIndex:    model.CloseIndex,
		FeatureNames: append([]string(nil), ds.FeatureNames...),
	}

	fitTarget := yTrain
	if mode == TargetDelta {
		fitTarget = make([]float64, len(yTrain))
		for i := range yTrain {
			fitTarget[i] = yTrain[i] - xTrain[i][m.BaseIndex]
		}
	}

	hp := cfg.Hyperparameters
	m.Forest = forest.New(forest.Params{
		NEstimators:     hp.NEstimators,
		MaxDepth:        hp.MaxDepth,
		MinSamplesSplit: hp.MinSamplesSplit,
		MinSamplesLeaf:  hp.MinSamplesLeaf,
		RandomState:     hp.RandomState,
	})
	if err := m.Forest.Fit(xs, fitTarget); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	predTrain, err := PredictAll(m, scaler, xTrain)
	if err != nil {
		return nil, err
	}
	predTest, err := PredictAll(m, scaler, xTest)
	if err != nil {
		return nil, err
	}

	importance := make(map[string]float64, len(ds.FeatureNames))
	for j, v := range m.Forest.FeatureImportances() {
		importance[ds.FeatureNames[j]] = v
	}

	return &Result{
		Model:  m,
		Scaler: scaler,
		Metrics: model.EvalMetrics{
			Train:             Evaluate(predTrain, yTrain),
			Test:              Evaluate(predTest, yTest),
			FeatureImportance: importance,
		},
		TrainSamples: train.Len(),
		TestSamples:  test.Len(),
	}, nil
}

// minRowsForSplit is the smallest dataset whose positional split leaves both sides non-empty.
func minRowsForSplit(ratio float64) int {
	for n := 2; n < 1000; n++ {
		idx := int(float64(n) * ratio)
		if idx >= 1 && idx < n {
			return n
		}
	}
	return 1000
}
