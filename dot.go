package rbm

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// ToDot renders the RBM as an undirected bipartite graph in the Graphviz DOT format.
// Units are labelled with their biases and edges with their weights. The edge pen width grows with the magnitude of the weight.
func (m *Model) ToDot() (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("RBM"); err != nil {
		return "", errors.WithStack(err)
	}
	g.SetDir(false)
	if err := g.AddAttr("RBM", "rankdir", "LR"); err != nil {
		return "", errors.WithStack(err)
	}

	visBias := m.visBias.Data().([]float32)
	hidBias := m.hidBias.Data().([]float32)
	weights := m.weights.Data().([]float32)

	layers := []struct {
		name, prefix string
		bias         []float32
	}{
		{"cluster_visible", "v", visBias},
		{"cluster_hidden", "h", hidBias},
	}
	for _, l := range layers {
		if err := g.AddSubGraph("RBM", l.name, map[string]string{"rank": "same"}); err != nil {
			return "", errors.WithStack(err)
		}
		for i, b := range l.bias {
			attrs := map[string]string{
				"shape": "circle",
				"label": fmt.Sprintf("\"%s%d\\nb=%.3f\"", l.prefix, i, b),
			}
			if err := g.AddNode(l.name, fmt.Sprintf("%s%d", l.prefix, i), attrs); err != nil {
				return "", errors.WithStack(err)
			}
		}
	}

	var maxW float32
	for _, w := range weights {
		maxW = math32.Max(maxW, math32.Abs(w))
	}
	nh := m.NumHidden()
	for i := 0; i < m.NumVisible(); i++ {
		for j := 0; j < nh; j++ {
			w := weights[i*nh+j]
			width := float32(1)
			if maxW > 0 {
				width += 2 * math32.Abs(w) / maxW
			}
			attrs := map[string]string{
				"label":    fmt.Sprintf("\"%.3f\"", w),
				"penwidth": fmt.Sprintf("\"%.2f\"", width),
			}
			if err := g.AddEdge(fmt.Sprintf("v%d", i), fmt.Sprintf("h%d", j), false, attrs); err != nil {
				return "", errors.WithStack(err)
			}
		}
	}
	return g.String(), nil
}
