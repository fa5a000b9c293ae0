package rbm

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DefaultHidden is the number of hidden units used when none is specified.
const DefaultHidden = 20

const initStdDev = 0.1

// Model is a restricted Boltzmann machine. It holds the weights connecting the visible and the hidden layer,
// the biases of both layers, and the momentum accumulators used by TrainBatch.
//
// A Model is not safe for concurrent use.
type Model struct {
	variant  Variant
	sampling Sampling

	weights *tensor.Dense // (numVisible, numHidden)
	visBias *tensor.Dense // (numVisible)
	hidBias *tensor.Dense // (numHidden)

	// momentum accumulators. They persist across calls to TrainBatch
	dWeights *tensor.Dense
	dVisBias *tensor.Dense
	dHidBias *tensor.Dense

	nSamples int // number of samples of the dataset the model was made from

	// visAct is the activation of the reconstructed visible layer, resolved from the variant at construction.
	visAct func([]float32)

	r      *rand.Rand
	init   G.InitWFn
	logger *log.Logger
}

// ModelOpt is an option for constructing a *Model.
type ModelOpt func(m *Model)

// WithSeed seeds the random generator used for initialization, shuffling and sampling.
func WithSeed(seed int64) ModelOpt {
	return func(m *Model) { m.r = rand.New(rand.NewSource(seed)) }
}

// WithRand uses the given random generator for initialization, shuffling and sampling.
func WithRand(r *rand.Rand) ModelOpt {
	return func(m *Model) { m.r = r }
}

// WithInit initializes the weights with the given function instead of a Gaussian of standard deviation 0.1.
// Biases are always initialized to zero.
func WithInit(fn G.InitWFn) ModelOpt {
	return func(m *Model) { m.init = fn }
}

// WithSampling chooses how hidden states are sampled.
func WithSampling(s Sampling) ModelOpt {
	return func(m *Model) { m.sampling = s }
}

// WithLogger sets the logger the progress is printed to.
func WithLogger(l *log.Logger) ModelOpt {
	return func(m *Model) { m.logger = l }
}

func makeModel(v Variant, opts ...ModelOpt) (*Model, error) {
	m := &Model{variant: v}
	switch v {
	case Gaussian:
		m.visAct = linear
	case Bernoulli:
		m.visAct = sigmoidAll
	default:
		return nil, errors.Errorf("RBM type error: this <%v> type does not exist", byte(v))
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.r == nil {
		m.r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.logger == nil {
		m.logger = log.New(os.Stderr, "", log.Ltime)
	}
	return m, nil
}

// New creates a randomly initialized RBM for the given dataset. The dataset is a (samples, attributes) matrix,
// and the number of attributes is the number of visible units.
func New(data *tensor.Dense, numHidden int, v Variant, opts ...ModelOpt) (*Model, error) {
	if err := checkMatrix(data, "dataset"); err != nil {
		return nil, err
	}
	m, err := NewSized(data.Shape()[1], numHidden, v, opts...)
	if err != nil {
		return nil, err
	}
	m.nSamples = data.Shape()[0]
	return m, nil
}

// NewSized creates a randomly initialized RBM without a dataset.
func NewSized(numVisible, numHidden int, v Variant, opts ...ModelOpt) (*Model, error) {
	if numVisible < 1 || numHidden < 1 {
		return nil, errors.Errorf("cannot make an RBM with %d visible and %d hidden units", numVisible, numHidden)
	}
	m, err := makeModel(v, opts...)
	if err != nil {
		return nil, err
	}
	if m.weights, err = m.initWeights(numVisible, numHidden); err != nil {
		return nil, err
	}
	m.visBias = newVector(numVisible)
	m.hidBias = newVector(numHidden)
	m.resetMomentum()
	return m, nil
}

// FromParams creates a RBM from previously learnt parameters. The parameters are copied.
// The biases may be given either as vectors or as (1, n) matrices.
func FromParams(weights, visBias, hidBias *tensor.Dense, v Variant, opts ...ModelOpt) (*Model, error) {
	if err := checkMatrix(weights, "weights"); err != nil {
		return nil, err
	}
	m, err := makeModel(v, opts...)
	if err != nil {
		return nil, err
	}
	if m.visBias, err = asVector(visBias, "visible bias"); err != nil {
		return nil, err
	}
	if m.hidBias, err = asVector(hidBias, "hidden bias"); err != nil {
		return nil, err
	}
	numVisible, numHidden := weights.Shape()[0], weights.Shape()[1]
	if n := m.visBias.Shape()[0]; n != numVisible {
		return nil, errors.Errorf("shape mismatch: weights %v, visible bias of %d", weights.Shape(), n)
	}
	if n := m.hidBias.Shape()[0]; n != numHidden {
		return nil, errors.Errorf("shape mismatch: weights %v, hidden bias of %d", weights.Shape(), n)
	}
	m.weights = cloneDense(weights)
	m.resetMomentum()
	return m, nil
}

func (m *Model) initWeights(numVisible, numHidden int) (*tensor.Dense, error) {
	var backing []float32
	if m.init != nil {
		var ok bool
		if backing, ok = m.init(tensor.Float32, numVisible, numHidden).([]float32); !ok {
			return nil, errors.Errorf("weight initializer did not return []float32")
		}
	} else {
		g := rng.NewGaussianGenerator(m.r.Int63())
		backing = make([]float32, numVisible*numHidden)
		for i := range backing {
			backing[i] = float32(g.Gaussian(0, initStdDev))
		}
	}
	return tensor.New(tensor.WithShape(numVisible, numHidden), tensor.WithBacking(backing)), nil
}

func (m *Model) resetMomentum() {
	m.dWeights = newMatrix(m.NumVisible(), m.NumHidden())
	m.dVisBias = newVector(m.NumVisible())
	m.dHidBias = newVector(m.NumHidden())
}

func (m *Model) NumVisible() int { return m.weights.Shape()[0] }
func (m *Model) NumHidden() int  { return m.weights.Shape()[1] }
func (m *Model) Variant() Variant { return m.variant }

// Weights returns the (numVisible, numHidden) weight matrix. The returned tensor is owned by the model.
func (m *Model) Weights() *tensor.Dense { return m.weights }

// VisibleBias returns the visible bias. The returned tensor is owned by the model.
func (m *Model) VisibleBias() *tensor.Dense { return m.visBias }

// HiddenBias returns the hidden bias. The returned tensor is owned by the model.
func (m *Model) HiddenBias() *tensor.Dense { return m.hidBias }

// InputWeights returns a new (numVisible+1, numHidden) matrix: the weights with the hidden bias as the last row.
// This is the affine transform used when the RBM initializes a feed forward layer.
func (m *Model) InputWeights() *tensor.Dense {
	nv, nh := m.NumVisible(), m.NumHidden()
	retVal := newMatrix(nv+1, nh)
	data := retVal.Data().([]float32)
	copy(data, m.weights.Data().([]float32))
	copy(data[nv*nh:], m.hidBias.Data().([]float32))
	return retVal
}

func (m *Model) String() string {
	return fmt.Sprintf("### RBM ###\n(numVis, numHid) = (%d, %d)\n(nSamples) = (%d)\n(Weights, visBias, hidBias) = (%v, %v, %v)\nRBM type: %v\nSampling: %v\n# # #",
		m.NumVisible(), m.NumHidden(), m.nSamples, m.weights.Shape(), m.visBias.Shape(), m.hidBias.Shape(), m.variant, m.sampling)
}
