package forest

import (
	"math"
	"sort"
)

const leaf = -1

// Node is one entry of a flattened regression tree. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
	Samples   int     `json:"n"`
}

// Tree is a CART regression tree stored as a node array, root at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks x down the tree: x[feature] <= threshold goes left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x          [][]float64
	y          []float64
	params     Params
	nodes      []Node
	importance []float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	pos       int // samples[:pos] go left after sorting by feature
}

// buildTree grows a tree over the given sample indices (bootstrap draws may repeat).
func buildTree(x [][]float64, y []float64, samples []int, p Params) (*Tree, []float64) {
	b := &treeBuilder{
		x:          x,
		y:          y,
		params:     p,
		importance: make([]float64, len(x[0])),
	}
	b.grow(samples, 0)
	return &Tree{Nodes: b.nodes}, b.importance
}

func (b *treeBuilder) grow(samples []int, depth int) int {
	sum, sse := b.moments(samples)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature: leaf,
		Value:   sum / float64(len(samples)),
		Samples: len(samples),
	})

	if len(samples) < b.params.MinSamplesSplit ||
		len(samples) < 2*b.params.MinSamplesLeaf ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) ||
		sse <= 1e-12 {
		return idx
	}

	best, ok := b.bestSplit(samples, sse)
	if !ok {
		return idx
	}

	sortByFeature(b.x, samples, best.feature)
	left := append([]int(nil), samples[:best.pos]...)
	right := append([]int(nil), samples[best.pos:]...)
	b.importance[best.feature] += best.gain

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Feature = best.feature
	b.nodes[idx].Threshold = best.threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

func (b *treeBuilder) moments(samples []int) (sum, sse float64) {
	var sq float64
	for _, s := range samples {
		sum += b.y[s]
		sq += b.y[s] * b.y[s]
	}
	sse = sq - sum*sum/float64(len(samples))
	if sse < 0 {
		sse = 0
	}
	return sum, sse
}

// bestSplit scans every feature for the threshold with the largest SSE reduction.
func (b *treeBuilder) bestSplit(samples []int, parentSSE float64) (split, bool) {
	var (
		best  split
		found bool
		n     = len(samples)
		minL  = b.params.MinSamplesLeaf
		order = make([]int, n)
	)
	for f := range b.importance {
		copy(order, samples)
		sortByFeature(b.x, order, f)

		var totalSum, totalSq float64
		for _, s := range order {
			totalSum += b.y[s]
			totalSq += b.y[s] * b.y[s]
		}

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			v := b.y[order[i]]
			leftSum += v
			leftSq += v * v

			nl := i + 1
			nr := n - nl
			if nl < minL || nr < minL {
				continue
			}
			cur, next := b.x[order[i]][f], b.x[order[i+1]][f]
			if cur == next {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sseL := leftSq - leftSum*leftSum/float64(nl)
			sseR := rightSq - rightSum*rightSum/float64(nr)
			gain := parentSSE - sseL - sseR
			if gain > best.gain+1e-12 {
				best = split{feature: f, threshold: cur + (next-cur)/2, gain: gain, pos: nl}
				found = true
			}
		}
	}
	if found && (math.IsNaN(best.threshold) || math.IsInf(best.threshold, 0)) {
		return split{}, false
	}
	return best, found
}

func sortByFeature(x [][]float64, samples []int, f int) {
	sort.SliceStable(samples, func(i, j int) bool { return x[samples[i]][f] < x[samples[j]][f] })
}
