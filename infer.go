package rbm

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// Reconstruct performs one step of Gibbs sampling: the data is propagated to the hidden layer, the hidden states are
// sampled, and the visible layer is reconstructed from them. The result has the same shape as data.
func (m *Model) Reconstruct(data *tensor.Dense) (*tensor.Dense, error) {
	data, _, err := m.checkData(data, "data")
	if err != nil {
		return nil, err
	}
	_, states, err := m.up(data)
	if err != nil {
		return nil, err
	}
	return m.down(states)
}

// Features propagates the data to the hidden layer. It returns both the probabilities of the hidden units and the
// sampled binary states, so the caller may pick soft or hard features.
func (m *Model) Features(data *tensor.Dense) (probs, states *tensor.Dense, err error) {
	if data, _, err = m.checkData(data, "data"); err != nil {
		return nil, nil, err
	}
	return m.up(data)
}

// FreeEnergy returns the free energy of every sample in data.
//
// For Bernoulli visible units:
//	F(v) = -v·b - Σⱼ log(1 + exp(v·Wⱼ + cⱼ))
// For Gaussian visible units with unit variance:
//	F(v) = ½‖v - b‖² - Σⱼ log(1 + exp(v·Wⱼ + cⱼ))
func (m *Model) FreeEnergy(data *tensor.Dense) ([]float32, error) {
	data, n, err := m.checkData(data, "data")
	if err != nil {
		return nil, err
	}
	var mb maebe
	pre := mb.matmul(data, m.weights)
	preRows := mb.rows(pre)
	visRows := mb.rows(data)
	visBias := mb.vector(m.visBias)
	hidBias := mb.vector(m.hidBias)
	if mb.err != nil {
		return nil, mb.err
	}

	retVal := make([]float32, n)
	for i := range retVal {
		var hidden float32
		for j, x := range preRows[i] {
			hidden += softplus(x + hidBias[j])
		}
		var visible float32
		for j, v := range visRows[i] {
			switch m.variant {
			case Gaussian:
				d := v - visBias[j]
				visible += d * d / 2
			case Bernoulli:
				visible -= v * visBias[j]
			}
		}
		retVal[i] = visible - hidden
	}
	return retVal, nil
}

// softplus is log(1 + exp(x)), computed without overflowing for large x.
func softplus(x float32) float32 {
	if x > 0 {
		return x + math32.Log1p(math32.Exp(-x))
	}
	return math32.Log1p(math32.Exp(x))
}
