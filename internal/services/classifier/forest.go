package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"PQAnalyzer/internal/domain/service"
)

// Node is one split or leaf of a decision tree. Samples with
// x[Feature] <= Threshold go Left, the rest go Right.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Class     int     `json:"class"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a random-forest binary classifier exported as JSON.
type Forest struct {
	Name  string `json:"name"`
	Trees []Tree `json:"trees"`
}

// LoadForest reads and validates an artifact. Any failure wraps service.ErrModelUnavailable.
func LoadForest(path string) (*Forest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", service.ErrModelUnavailable, path, err)
	}
	var f Forest
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", service.ErrModelUnavailable, path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", service.ErrModelUnavailable, path, err)
	}
	return &f, nil
}

func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if n.Class != 0 && n.Class != 1 {
					return fmt.Errorf("tree %d node %d: class %d is not binary", ti, ni, n.Class)
				}
				continue
			}
			if n.Feature < 0 || n.Feature > 1 {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
		}
	}
	return nil
}

// Predict returns the majority vote of the trees for every row. Ties are negative.
func (f *Forest) Predict(ctx context.Context, rows [][2]float64) ([]bool, error) {
	out := make([]bool, len(rows))
	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		votes := 0
		for _, t := range f.Trees {
			votes += t.classify(row)
		}
		out[i] = 2*votes > len(f.Trees)
	}
	return out, nil
}

// Children always have a larger index than their parent, so the walk terminates.
func (t Tree) classify(row [2]float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Class
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

var _ service.Classifier = (*Forest)(nil)
