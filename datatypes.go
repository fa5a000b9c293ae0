package rbm

import (
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Variant selects the activation of the visible layer.
type Variant byte

const (
	// Gaussian visible units reconstruct linearly (GBRBM).
	Gaussian Variant = iota + 1
	// Bernoulli visible units reconstruct through a sigmoid (BBRBM).
	Bernoulli
)

func (v Variant) String() string {
	switch v {
	case Gaussian:
		return "GBRBM"
	case Bernoulli:
		return "BBRBM"
	}
	return "UNKNOWN VARIANT"
}

// ParseVariant parses the name of a variant. It accepts the short names ("GBRBM", "BBRBM")
// as well as "gaussian" and "bernoulli", case insensitive.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gbrbm", "gaussian":
		return Gaussian, nil
	case "bbrbm", "bernoulli":
		return Bernoulli, nil
	}
	return 0, errors.Errorf("this <%s> type does not exist", s)
}

// Sampling decides how the uniform thresholds for the binary hidden states are drawn.
type Sampling byte

const (
	// SharedThreshold draws one threshold per hidden unit and uses it for every sample in the batch.
	SharedThreshold Sampling = iota
	// IndependentThreshold draws one threshold per sample per hidden unit.
	IndependentThreshold
)

func (s Sampling) String() string {
	if s == IndependentThreshold {
		return "independent"
	}
	return "shared"
}

// TrainConfig configures a full training run.
type TrainConfig struct {
	Name string // identifies the training run

	MaxIterations   int     // iteration budget
	LearningRate    float32 // lr
	WeightCost      float32 // L2 penalty on the weights
	InitialMomentum float32 // used for the first 5 iterations
	FinalMomentum   float32 // used afterwards
	CDSteps         int     // k in CD-k
	BatchSize       int     // 0 means the whole dataset is one batch

	Verbose   bool
	FreqPrint int     // report every FreqPrint iterations
	Tolerance float32 // weight drift tolerance for early stopping

	// Output, if set, is handed a Progress every FreqPrint iterations.
	Output OutputEncoder
}

// DefaultTrainConfig returns the usual hyperparameters for a CD-1 run.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		MaxIterations:   200,
		LearningRate:    0.001,
		WeightCost:      0.0002,
		InitialMomentum: 0.5,
		FinalMomentum:   0.9,
		CDSteps:         1,
		BatchSize:       100,
		Verbose:         true,
		FreqPrint:       10,
		Tolerance:       10e-5,
	}
}

func (conf TrainConfig) IsValid() bool {
	return conf.MaxIterations >= 0 &&
		conf.CDSteps >= 1 &&
		conf.BatchSize >= 0 &&
		conf.FreqPrint >= 1
}

// BatchConfig configures a single online update with TrainBatch.
type BatchConfig struct {
	LearningRate float32
	WeightCost   float32
	Momentum     float32
	CDSteps      int
	BatchSize    int // divisor of the gradient. 0 means the number of rows in the batch
	Verbose      bool
}

// DefaultBatchConfig returns the usual hyperparameters for online updates.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		LearningRate: 0.001,
		WeightCost:   0.0002,
		Momentum:     0.9,
		CDSteps:      1,
		BatchSize:    100,
		Verbose:      true,
	}
}

func (conf BatchConfig) IsValid() bool { return conf.CDSteps >= 1 && conf.BatchSize >= 0 }

// BatchResult is the outcome of a single TrainBatch call.
type BatchResult struct {
	Error float32 // reconstruction error of the batch
	Drift float32 // mean squared change of the weights
}

// Progress is a snapshot of a training run.
type Progress struct {
	Name      string
	Iteration int
	Error     float32
	Drift     float32
	Weights   *tensor.Dense
}

// OutputEncoder encodes training progress as whatever.
//
// An example OutputEncoder is the gif.Encoder, which renders the weights.
type OutputEncoder interface {
	Encode(p Progress) error
	Flush() error
}
