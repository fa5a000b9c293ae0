package rbm

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// sigmoid saturates in float32: it is exactly 1 for x above about 17 and exactly 0 for x below about -88.
// Pre-activations of a sanely scaled RBM stay well inside that range, so probabilities are in (0, 1).
func sigmoid(x float32) float32 { return 1 / (1 + math32.Exp(-x)) }

func sigmoidAll(a []float32) {
	for i, v := range a {
		a[i] = sigmoid(v)
	}
}

func linear(a []float32) {}

// up propagates the visible layer to the hidden layer. It returns the probabilities of the hidden units being on,
// and the sampled binary states.
func (m *Model) up(visible *tensor.Dense) (probs, states *tensor.Dense, err error) {
	var mb maebe
	probs = mb.matmul(visible, m.weights)
	rows := mb.rows(probs)
	bias := mb.vector(m.hidBias)
	if mb.err != nil {
		return nil, nil, mb.err
	}
	for _, row := range rows {
		vecf32.Add(row, bias)
		sigmoidAll(row)
	}
	if states, err = m.sample(probs); err != nil {
		return nil, nil, err
	}
	return probs, states, nil
}

// down reconstructs the visible layer from the hidden states.
// The visible activation depends on the variant: Gaussian units are linear, Bernoulli units are a sigmoid.
func (m *Model) down(states *tensor.Dense) (*tensor.Dense, error) {
	var mb maebe
	wT := mb.transpose(m.weights)
	visible := mb.matmul(states, wT)
	rows := mb.rows(visible)
	bias := mb.vector(m.visBias)
	if mb.err != nil {
		return nil, mb.err
	}
	for _, row := range rows {
		vecf32.Add(row, bias)
		m.visAct(row)
	}
	return visible, nil
}

// sample turns probabilities into binary states: a unit is on when its probability is larger than a uniform threshold.
//
// With SharedThreshold a single threshold is drawn per hidden unit and compared against every sample in the batch.
// With IndependentThreshold every sample draws its own thresholds.
func (m *Model) sample(probs *tensor.Dense) (*tensor.Dense, error) {
	var mb maebe
	pr := mb.rows(probs)
	states := newMatrix(probs.Shape()[0], probs.Shape()[1])
	sr := mb.rows(states)
	if mb.err != nil {
		return nil, mb.err
	}
	thresh := make([]float32, probs.Shape()[1])
	m.thresholds(thresh)
	for i, row := range pr {
		if i > 0 && m.sampling == IndependentThreshold {
			m.thresholds(thresh)
		}
		for j, p := range row {
			if p > thresh[j] {
				sr[i][j] = 1
			}
		}
	}
	return states, nil
}

func (m *Model) thresholds(a []float32) {
	for i := range a {
		a[i] = m.r.Float32()
	}
}
