package rbm

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"gorgonia.org/tensor"
)

func TestSaveLoadTables(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	m, err := NewSized(5, 3, Bernoulli, WithSeed(1))
	if err != nil {
		t.Fatal(err)
	}
	// make the biases non trivial
	data := constantData(6, 0, 1, 1, 0, 1)
	conf := quietConf()
	conf.MaxIterations = 5
	conf.BatchSize = 3
	conf.LearningRate = 0.1
	if _, err = m.Train(data, conf); err != nil {
		t.Fatalf("%+v", err)
	}

	if err = m.SaveTables(dir, "Run1"); err != nil {
		t.Fatalf("%+v", err)
	}
	for _, f := range []string{"weightsRun1.csv", "visBiasRun1.csv", "hidBiasRun1.csv"} {
		if _, err := ioutil.ReadFile(filepath.Join(dir, f)); err != nil {
			t.Errorf("Expected %v to be written: %v", f, err)
		}
	}
	_, vPath, _ := TablePaths(dir, "Run1")
	vis, err := ioutil.ReadFile(vPath)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(1, strings.Count(string(vis), "\n"), "biases are a single row")
	assert.Equal(5, len(strings.Fields(string(vis))))

	loaded, err := LoadTables(dir, "Run1", Bernoulli, WithSeed(2))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff(m.Weights().Data(), loaded.Weights().Data()); diff != "" {
		t.Errorf("weights differ (-saved +loaded):\n%s", diff)
	}
	if diff := cmp.Diff(m.VisibleBias().Data(), loaded.VisibleBias().Data()); diff != "" {
		t.Errorf("visible bias differs (-saved +loaded):\n%s", diff)
	}
	if diff := cmp.Diff(m.HiddenBias().Data(), loaded.HiddenBias().Data()); diff != "" {
		t.Errorf("hidden bias differs (-saved +loaded):\n%s", diff)
	}

	// same parameters and same seed reconstruct the same
	fresh, err := FromParams(m.Weights(), m.VisibleBias(), m.HiddenBias(), Bernoulli, WithSeed(2))
	if err != nil {
		t.Fatal(err)
	}
	r1, err := fresh.Reconstruct(data)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := loaded.Reconstruct(data)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(r1.Data(), r2.Data())

	if _, err = LoadTables(dir, "Run2", Bernoulli); err == nil {
		t.Error("Expected an error loading tables that do not exist")
	}
}

func TestReadTable(t *testing.T) {
	assert := assert.New(t)
	input := "1,2,3\n4 5 6\n\n# comment\n7\t8,  9\n"
	a, err := ReadTable(strings.NewReader(input))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(a.Shape().Eq(tensor.Shape{3, 3}))
	assert.Equal([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, a.Data())
}

var badTables = []struct {
	name, input string
}{
	{"empty", ""},
	{"comments only", "# nothing\n\n"},
	{"ragged", "1 2 3\n4 5\n"},
	{"not a number", "1 2\n3 x\n"},
}

func TestReadTable_Errors(t *testing.T) {
	for _, c := range badTables {
		if _, err := ReadTable(strings.NewReader(c.input)); err == nil {
			t.Errorf("%v: expected an error", c.name)
		}
	}
}

func TestWriteTable(t *testing.T) {
	vals := []float32{0.1, 1.0 / 3, -1e-30, 123456.79, 0, -2.5}
	a := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking(vals))
	var buf bytes.Buffer
	if err := WriteTable(&buf, a); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	b, err := ReadTable(&buf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff(vals, b.Data()); diff != "" {
		t.Errorf("values do not survive a write and a read:\n%s", diff)
	}

	cube := tensor.New(tensor.WithShape(2, 1, 3), tensor.WithBacking(vals))
	if err := WriteTable(&buf, cube); err == nil {
		t.Error("Expected an error writing a 3-tensor")
	}
}

func TestSaveLoad(t *testing.T) {
	assert := assert.New(t)
	filename := filepath.Join(t.TempDir(), "model.gob")
	m, err := NewSized(4, 2, Gaussian, WithSeed(3), WithSampling(IndependentThreshold))
	if err != nil {
		t.Fatal(err)
	}
	conf := DefaultBatchConfig()
	conf.Verbose = false
	if _, err = m.TrainBatch(constantData(3, 1, 0, 1, 0), conf); err != nil {
		t.Fatalf("%+v", err)
	}

	if err = m.Save(filename); err != nil {
		t.Fatalf("%+v", err)
	}
	loaded, err := Load(filename, WithSeed(4))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(Gaussian, loaded.Variant())
	assert.Equal(IndependentThreshold, loaded.sampling)
	assert.Equal(m.Weights().Data(), loaded.Weights().Data())
	assert.Equal(m.VisibleBias().Data(), loaded.VisibleBias().Data())
	assert.Equal(m.HiddenBias().Data(), loaded.HiddenBias().Data())
	assert.Equal(m.dWeights.Data(), loaded.dWeights.Data(), "momentum is saved")
	assert.NotNil(loaded.r)
	assert.NotNil(loaded.visAct)

	// a loaded model can keep training
	if _, err = loaded.TrainBatch(constantData(3, 1, 0, 1, 0), conf); err != nil {
		t.Fatalf("%+v", err)
	}
}
