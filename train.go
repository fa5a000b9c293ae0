package rbm

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

const (
	momentumSwitch = 5   // iterations before the final momentum kicks in
	minIterations  = 300 // iterations before early stopping is considered
)

// gradient is the outcome of one CD-k cycle over a batch.
type gradient struct {
	vis1 *tensor.Dense // final reconstruction
	dW   []float32     // vis0ᵀ·prob0 - vis1ᵀ·prob1
	dV   []float32     // colSum(vis0) - colSum(vis1)
	dH   []float32     // colSum(prob0) - colSum(prob1)
}

// contrastiveDivergence runs the positive phase on vis0 and k steps of Gibbs sampling for the negative phase.
func (m *Model) contrastiveDivergence(vis0 *tensor.Dense, k int) (g gradient, err error) {
	var prob0, prob1, states *tensor.Dense
	if prob0, states, err = m.up(vis0); err != nil {
		return g, errors.WithMessage(err, "positive phase")
	}
	for n := 0; n < k; n++ {
		if g.vis1, err = m.down(states); err != nil {
			return g, errors.WithMessagef(err, "reconstruction at step %d", n)
		}
		if prob1, states, err = m.up(g.vis1); err != nil {
			return g, errors.WithMessagef(err, "negative phase at step %d", n)
		}
	}

	var mb maebe
	pos := mb.matmul(mb.transpose(vis0), prob0)
	neg := mb.matmul(mb.transpose(g.vis1), prob1)
	vis0Sum, vis1Sum := mb.colSum(vis0), mb.colSum(g.vis1)
	prob0Sum, prob1Sum := mb.colSum(prob0), mb.colSum(prob1)
	if mb.err != nil {
		return g, mb.err
	}
	g.dW = pos.Data().([]float32)
	vecf32.Sub(g.dW, neg.Data().([]float32))
	vecf32.Sub(vis0Sum, vis1Sum)
	vecf32.Sub(prob0Sum, prob1Sum)
	g.dV, g.dH = vis0Sum, prob0Sum
	return g, nil
}

// accumulate updates a momentum accumulator:
//	acc = mom·acc + lr·delta/batchSize - wc·param
// param is nil for the biases, which are not penalized. delta is used as scratch space and is clobbered.
func accumulate(acc, delta, param []float32, mom, lr, wc float32, batchSize int) {
	vecf32.Scale(acc, mom)
	vecf32.Scale(delta, lr/float32(batchSize))
	vecf32.Add(acc, delta)
	if param != nil {
		copy(delta, param)
		vecf32.Scale(delta, wc)
		vecf32.Sub(acc, delta)
	}
}

func momentumAt(iter int, conf TrainConfig) float32 {
	if iter < momentumSwitch {
		return conf.InitialMomentum
	}
	return conf.FinalMomentum
}

// mse is the mean squared difference between a and b.
func mse(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum / float32(len(a))
}

// checkData checks that data can be fed to the visible layer. Views are materialized.
func (m *Model) checkData(data *tensor.Dense, name string) (*tensor.Dense, int, error) {
	if err := checkMatrix(data, name); err != nil {
		return nil, 0, err
	}
	if data.Shape()[1] != m.NumVisible() {
		return nil, 0, errors.Errorf("%s has %d attributes, the RBM has %d visible units", name, data.Shape()[1], m.NumVisible())
	}
	if data.Shape()[0] == 0 {
		return nil, 0, errors.Errorf("%s has no samples", name)
	}
	data = materialized(data)
	return data, data.Shape()[0], nil
}

// shuffleInto copies the rows of src into dst in a random order.
func (m *Model) shuffleInto(dst, src []float32, cols int) {
	n := len(src) / cols
	for i, j := range m.r.Perm(n) {
		copy(dst[i*cols:(i+1)*cols], src[j*cols:(j+1)*cols])
	}
}

// Train trains the RBM on data, a (samples, numVisible) matrix, with CD-k.
//
// Every iteration the data is shuffled and cut into batches of conf.BatchSize rows. A trailing batch that is smaller
// than conf.BatchSize is not used. The momentum accumulators are updated for every batch, and the parameters are
// updated with the accumulators once per iteration. The accumulators are local to this call.
//
// Training stops after conf.MaxIterations iterations, or once more than 300 iterations have passed and the mean
// squared change of the weights is no larger than conf.Tolerance.
func (m *Model) Train(data *tensor.Dense, conf TrainConfig) (*History, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid training configuration %+v", conf)
	}
	data, nSamples, err := m.checkData(data, "dataset")
	if err != nil {
		return nil, err
	}
	batchSize := conf.BatchSize
	if batchSize == 0 {
		batchSize = nSamples
	}
	if batchSize > nSamples {
		return nil, errors.Errorf("batch size %d is larger than the %d samples in the dataset", batchSize, nSamples)
	}
	if conf.Verbose {
		m.logger.Printf("Starting the training...")
	}

	nv, nh := m.NumVisible(), m.NumHidden()
	dW := make([]float32, nv*nh)
	dV := make([]float32, nv)
	dH := make([]float32, nh)

	weights := m.weights.Data().([]float32)
	visBias := m.visBias.Data().([]float32)
	hidBias := m.hidBias.Data().([]float32)
	prevWeights := make([]float32, len(weights))
	copy(prevWeights, weights)

	src := data.Data().([]float32)
	shuffled := make([]float32, nSamples*nv)
	hist := newHistory(conf.Name)

	for it := 0; it < conf.MaxIterations; it++ {
		mom := momentumAt(it, conf)
		m.shuffleInto(shuffled, src, nv)

		var vis0 *tensor.Dense
		var g gradient
		var batches int
		for start := 0; start+batchSize <= nSamples; start += batchSize {
			vis0 = tensor.New(tensor.WithShape(batchSize, nv), tensor.WithBacking(shuffled[start*nv:(start+batchSize)*nv]))
			if g, err = m.contrastiveDivergence(vis0, conf.CDSteps); err != nil {
				return hist, errors.WithMessagef(err, "iteration %d, batch %d", it, batches)
			}
			accumulate(dW, g.dW, weights, mom, conf.LearningRate, conf.WeightCost, batchSize)
			accumulate(dV, g.dV, nil, mom, conf.LearningRate, conf.WeightCost, batchSize)
			accumulate(dH, g.dH, nil, mom, conf.LearningRate, conf.WeightCost, batchSize)
			batches++
		}

		vecf32.Add(weights, dW)
		vecf32.Add(visBias, dV)
		vecf32.Add(hidBias, dH)

		// the error is the one of the last batch
		recErr := mse(g.vis1.Data().([]float32), vis0.Data().([]float32))
		drift := mse(weights, prevWeights)
		copy(prevWeights, weights)
		hist.record(it, recErr, drift, batches, batches*batchSize)

		if it%conf.FreqPrint == 0 {
			if conf.Verbose {
				m.logger.Printf("Reconstruction error: %v Iter: %d  Diff: %v", recErr, it, drift)
			}
			if conf.Output != nil {
				p := Progress{Name: conf.Name, Iteration: it, Error: recErr, Drift: drift, Weights: m.weights}
				if err = conf.Output.Encode(p); err != nil {
					return hist, errors.Wrapf(err, "encoding progress of iteration %d", it)
				}
			}
		}

		if it > minIterations && drift <= conf.Tolerance {
			hist.Converged = true
			break
		}
	}
	return hist, nil
}

// TrainBatch performs a single CD-k update on batch. It is meant for online training, where the data arrives
// batch by batch.
//
// Unlike Train, the momentum accumulators are kept in the model and carry over from one call to the next, and the
// momentum is the fixed conf.Momentum. The gradient is divided by conf.BatchSize, or by the number of rows in the
// batch if conf.BatchSize is 0.
func (m *Model) TrainBatch(batch *tensor.Dense, conf BatchConfig) (res BatchResult, err error) {
	if !conf.IsValid() {
		return res, errors.Errorf("invalid batch configuration %+v", conf)
	}
	var rows int
	if batch, rows, err = m.checkData(batch, "batch"); err != nil {
		return res, err
	}
	batchSize := conf.BatchSize
	if batchSize == 0 {
		batchSize = rows
	}

	weights := m.weights.Data().([]float32)
	prevWeights := make([]float32, len(weights))
	copy(prevWeights, weights)

	var g gradient
	if g, err = m.contrastiveDivergence(batch, conf.CDSteps); err != nil {
		return res, err
	}
	dW := m.dWeights.Data().([]float32)
	dV := m.dVisBias.Data().([]float32)
	dH := m.dHidBias.Data().([]float32)
	accumulate(dW, g.dW, weights, conf.Momentum, conf.LearningRate, conf.WeightCost, batchSize)
	accumulate(dV, g.dV, nil, conf.Momentum, conf.LearningRate, conf.WeightCost, batchSize)
	accumulate(dH, g.dH, nil, conf.Momentum, conf.LearningRate, conf.WeightCost, batchSize)

	vecf32.Add(weights, dW)
	vecf32.Add(m.visBias.Data().([]float32), dV)
	vecf32.Add(m.hidBias.Data().([]float32), dH)

	res.Error = mse(g.vis1.Data().([]float32), batch.Data().([]float32))
	res.Drift = mse(weights, prevWeights)
	if conf.Verbose {
		m.logger.Printf("RBM reconstruction error: %v  W diff: %v", res.Error, res.Drift)
	}
	return res, nil
}
