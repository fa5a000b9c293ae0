package rbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestNew(t *testing.T) {
	assert := assert.New(t)
	data := tensor.New(tensor.WithShape(5, 3), tensor.WithBacking(make([]float32, 15)))
	m, err := New(data, 4, Gaussian, WithSeed(1))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(3, m.NumVisible())
	assert.Equal(4, m.NumHidden())
	assert.Equal(Gaussian, m.Variant())
	assert.Equal(5, m.nSamples)
	assert.True(m.Weights().Shape().Eq(tensor.Shape{3, 4}))
	assert.Equal([]float32{0, 0, 0}, m.VisibleBias().Data())
	assert.Equal([]float32{0, 0, 0, 0}, m.HiddenBias().Data())
	assert.Equal(make([]float32, 12), m.dWeights.Data())

	var nonZero int
	for _, w := range m.Weights().Data().([]float32) {
		if w != 0 {
			nonZero++
		}
		assert.True(w > -1 && w < 1, "%v is too far out for N(0, 0.1)", w)
	}
	assert.NotZero(nonZero)
}

func TestNew_SameSeed(t *testing.T) {
	m1, err := NewSized(6, 3, Bernoulli, WithSeed(42))
	if err != nil {
		t.Fatal(err)
	}
	m2, err := NewSized(6, 3, Bernoulli, WithSeed(42))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, m1.Weights().Data(), m2.Weights().Data())
}

func TestNew_Errors(t *testing.T) {
	if _, err := NewSized(3, 2, Variant(9)); err == nil {
		t.Error("Expected an error for an unknown variant")
	}
	if _, err := NewSized(0, 2, Gaussian); err == nil {
		t.Error("Expected an error for no visible units")
	}
	if _, err := NewSized(3, 0, Gaussian); err == nil {
		t.Error("Expected an error for no hidden units")
	}
	vec := tensor.New(tensor.WithShape(3), tensor.Of(tensor.Float32))
	if _, err := New(vec, 2, Gaussian); err == nil {
		t.Error("Expected an error for a dataset that is not a matrix")
	}
	f64 := tensor.New(tensor.WithShape(2, 3), tensor.Of(tensor.Float64))
	if _, err := New(f64, 2, Gaussian); err == nil {
		t.Error("Expected an error for a float64 dataset")
	}
}

func TestWithInit(t *testing.T) {
	m, err := NewSized(4, 5, Gaussian, WithInit(G.Uniform(1, 2)))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	for _, w := range m.Weights().Data().([]float32) {
		if w < 1 || w > 2 {
			t.Errorf("Expected weights within [1, 2]. Got %v", w)
		}
	}
}

func TestFromParams(t *testing.T) {
	assert := assert.New(t)
	weights := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6}))
	visBias := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]float32{0.5, -0.5}))
	hidBias := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{1, 0, -1}))

	m, err := FromParams(weights, visBias, hidBias, Bernoulli)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(2, m.NumVisible())
	assert.Equal(3, m.NumHidden())
	assert.Equal(1, m.VisibleBias().Dims())
	assert.Equal([]float32{0.5, -0.5}, m.VisibleBias().Data())
	assert.Equal([]float32{1, 0, -1}, m.HiddenBias().Data())

	// the parameters are copied
	weights.Data().([]float32)[0] = 100
	assert.Equal(float32(1), m.Weights().Data().([]float32)[0])

	badHid := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{1, 0}))
	if _, err = FromParams(weights, visBias, badHid, Bernoulli); err == nil {
		t.Error("Expected a shape mismatch error for the hidden bias")
	}
	badVis := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{1, 0, 1}))
	if _, err = FromParams(weights, badVis, hidBias, Bernoulli); err == nil {
		t.Error("Expected a shape mismatch error for the visible bias")
	}
	colVis := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float32{1, 0}))
	if _, err = FromParams(weights, colVis, hidBias, Bernoulli); err == nil {
		t.Error("Expected an error for a column vector")
	}
}

func TestFromParams_Views(t *testing.T) {
	assert := assert.New(t)
	// 1 2
	// 3 4
	// 5 6
	big := tensor.New(tensor.WithShape(3, 2), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6}))
	rows, err := big.Slice(G.S(0, 2))
	if err != nil {
		t.Fatal(err)
	}
	col, err := big.Slice(G.S(0, 2), G.S(1))
	if err != nil {
		t.Fatal(err)
	}
	last, err := big.Slice(G.S(2))
	if err != nil {
		t.Fatal(err)
	}

	m, err := FromParams(rows.(*tensor.Dense), col.(*tensor.Dense), last.(*tensor.Dense), Gaussian)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal([]float32{1, 2, 3, 4}, m.Weights().Data())
	assert.Equal([]float32{2, 4}, m.VisibleBias().Data())
	assert.Equal([]float32{5, 6}, m.HiddenBias().Data())

	// the model does not share memory with big
	big.Data().([]float32)[1] = 100
	assert.Equal([]float32{1, 2, 3, 4}, m.Weights().Data())
	assert.Equal([]float32{2, 4}, m.VisibleBias().Data())
}

func TestInputWeights(t *testing.T) {
	weights := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float32{1, 2, 3, 4, 5, 6}))
	visBias := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{0.5, -0.5}))
	hidBias := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{7, 8, 9}))
	m, err := FromParams(weights, visBias, hidBias, Gaussian)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	iw := m.InputWeights()
	assert.True(t, iw.Shape().Eq(tensor.Shape{3, 3}))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, iw.Data())
}

var parseVariantCases = []struct {
	s       string
	correct Variant
	err     bool
}{
	{"GBRBM", Gaussian, false},
	{"gbrbm", Gaussian, false},
	{"gaussian", Gaussian, false},
	{"BBRBM", Bernoulli, false},
	{" Bernoulli ", Bernoulli, false},
	{"XRBM", 0, true},
	{"", 0, true},
}

func TestParseVariant(t *testing.T) {
	for _, c := range parseVariantCases {
		v, err := ParseVariant(c.s)
		switch {
		case c.err && err == nil:
			t.Errorf("Expected an error parsing %q", c.s)
		case !c.err && err != nil:
			t.Errorf("Parsing %q: %v", c.s, err)
		case v != c.correct:
			t.Errorf("Expected %q to parse to %v. Got %v instead", c.s, c.correct, v)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	if !DefaultTrainConfig().IsValid() {
		t.Errorf("Expected the default training config to be valid")
	}
	if !DefaultBatchConfig().IsValid() {
		t.Errorf("Expected the default batch config to be valid")
	}
	conf := DefaultTrainConfig()
	conf.CDSteps = 0
	if conf.IsValid() {
		t.Errorf("CD-0 should not be valid")
	}
}
