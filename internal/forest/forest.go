// Package forest implements a random forest of CART regression trees.
package forest

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
)

// Params mirrors the hyperparameters recorded in the metrics document.
type Params struct {
	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"` // 0 means unlimited
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	RandomState     int64 `json:"random_state"`
}

// Forest is a fitted random forest regressor.
type Forest struct {
	Params      Params    `json:"params"`
	NFeatures   int       `json:"n_features"`
	Trees       []*Tree   `json:"trees"`
	Importances []float64 `json:"feature_importances"`
}

var ErrNotFitted = errors.New("forest: not fitted")

// New creates an unfitted forest.
func New(p Params) *Forest {
	if p.NEstimators < 1 {
		p.NEstimators = 1
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	return &Forest{Params: p}
}

// Fit grows NEstimators trees, each on a bootstrap sample of the rows.
// Results depend only on the data and RandomState.
func (f *Forest) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return errors.New("forest: no samples")
	}
	if len(x) != len(y) {
		return fmt.Errorf("forest: %d rows but %d targets", len(x), len(y))
	}
	nf := len(x[0])
	if nf == 0 {
		return errors.New("forest: no features")
	}
	for i, row := range x {
		if len(row) != nf {
			return fmt.Errorf("forest: row %d has %d features, want %d", i, len(row), nf)
		}
	}

	seed := uint64(f.Params.RandomState)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	seeds := make([]uint64, f.Params.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	trees := make([]*Tree, len(seeds))
	importances := make([][]float64, len(seeds))

	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	for i, s := range seeds {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, s uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			r := rand.New(rand.NewPCG(s, s>>1|1))
			samples := make([]int, len(x))
			for j := range samples {
				samples[j] = r.IntN(len(x))
			}
			trees[i], importances[i] = buildTree(x, y, samples, f.Params)
		}(i, s)
	}
	wg.Wait()

	f.NFeatures = nf
	f.Trees = trees
	f.Importances = averageImportances(importances, nf)
	return nil
}

// averageImportances normalises each tree's impurity decrease, averages across trees
// and renormalises. A forest without a single split reports all zeros.
func averageImportances(perTree [][]float64, nf int) []float64 {
	out := make([]float64, nf)
	for _, imp := range perTree {
		var total float64
		for _, v := range imp {
			total += v
		}
		if total <= 0 {
			continue
		}
		for j, v := range imp {
			out[j] += v / total
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// Predict averages the tree predictions for one feature vector.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != f.NFeatures {
		return 0, fmt.Errorf("forest: got %d features, want %d", len(x), f.NFeatures)
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

// FeatureImportances returns a copy of the normalised impurity importances.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}
