package rbm

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// table file names, as prefixes to the name of the training run
const (
	weightsTable = "weights"
	visBiasTable = "visBias"
	hidBiasTable = "hidBias"
)

// TablePaths returns the paths of the weights, visible bias and hidden bias tables of a training run.
func TablePaths(dir, name string) (weights, visBias, hidBias string) {
	return filepath.Join(dir, weightsTable+name+".csv"),
		filepath.Join(dir, visBiasTable+name+".csv"),
		filepath.Join(dir, hidBiasTable+name+".csv")
}

// SaveTables writes the weights and biases into three human readable tables in dir, named after the training run.
// The biases are written as a single row.
func (m *Model) SaveTables(dir, name string) error {
	wPath, vPath, hPath := TablePaths(dir, name)
	var errs manyErr
	for _, t := range []struct {
		path string
		a    *tensor.Dense
	}{
		{wPath, m.weights},
		{vPath, m.visBias},
		{hPath, m.hidBias},
	} {
		if err := writeTableFile(t.path, t.a); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// LoadTables reads the tables written by SaveTables, and creates a RBM from them.
func LoadTables(dir, name string, v Variant, opts ...ModelOpt) (*Model, error) {
	wPath, vPath, hPath := TablePaths(dir, name)
	weights, err := readTableFile(wPath)
	if err != nil {
		return nil, err
	}
	visBias, err := readTableFile(vPath)
	if err != nil {
		return nil, err
	}
	hidBias, err := readTableFile(hPath)
	if err != nil {
		return nil, err
	}
	return FromParams(weights, visBias, hidBias, v, opts...)
}

func writeTableFile(path string, a *tensor.Dense) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = WriteTable(f, a); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

func readTableFile(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return t, nil
}

// WriteTable writes a vector or a matrix as space separated rows. A vector is written as one row.
// The values are written in the shortest form that reads back to the same float32.
func WriteTable(w io.Writer, a *tensor.Dense) error {
	if a.Dtype() != tensor.Float32 {
		return errors.Errorf("cannot write a table of %v", a.Dtype())
	}
	if a.IsMaterializable() {
		a = a.Materialize().(*tensor.Dense)
	}
	var cols int
	switch a.Dims() {
	case 1:
		cols = a.Shape()[0]
	case 2:
		cols = a.Shape()[1]
	default:
		return errors.Errorf("cannot write a table of shape %v", a.Shape())
	}
	data := a.Data().([]float32)
	cw := csv.NewWriter(w)
	cw.Comma = ' '
	record := make([]string, cols)
	for start := 0; start < len(data); start += cols {
		for j, v := range data[start : start+cols] {
			record[j] = strconv.FormatFloat(float64(v), 'e', -1, 32)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable reads a numeric table into a (rows, cols) matrix. The values may be separated by commas or white space.
// Empty lines and lines starting with # are skipped.
func ReadTable(r io.Reader) (*tensor.Dense, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var backing []float32
	var rows, cols, line int
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, isSeparator)
		if rows == 0 {
			cols = len(fields)
		}
		if len(fields) != cols {
			return nil, errors.Errorf("line %d: expected %d values, got %d", line, cols, len(fields))
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			backing = append(backing, float32(v))
		}
		rows++
	}
	if err := s.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if rows == 0 {
		return nil, errors.New("empty table")
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(backing)), nil
}

func isSeparator(r rune) bool { return r == ',' || unicode.IsSpace(r) }

// GobEncode encodes the variant, the sampling mode, the parameters and the momentum accumulators.
func (m *Model) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(m.variant); err != nil {
		return nil, err
	}
	if err := enc.Encode(m.sampling); err != nil {
		return nil, err
	}
	if err := enc.Encode(m.nSamples); err != nil {
		return nil, err
	}
	for _, t := range m.tensors() {
		if err := enc.Encode(*t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// GobDecode decodes a model encoded with GobEncode. The random generator and the logger of m are kept.
func (m *Model) GobDecode(p []byte) error {
	dec := gob.NewDecoder(bytes.NewBuffer(p))
	var v Variant
	if err := dec.Decode(&v); err != nil {
		return err
	}
	fresh, err := makeModel(v, WithRand(m.r), WithLogger(m.logger))
	if err != nil {
		return err
	}
	if err = dec.Decode(&fresh.sampling); err != nil {
		return err
	}
	if err = dec.Decode(&fresh.nSamples); err != nil {
		return err
	}
	for _, t := range fresh.tensors() {
		*t = new(tensor.Dense)
		if err = dec.Decode(*t); err != nil {
			return err
		}
	}
	*m = *fresh
	return nil
}

func (m *Model) tensors() []**tensor.Dense {
	return []**tensor.Dense{&m.weights, &m.visBias, &m.hidBias, &m.dWeights, &m.dVisBias, &m.dHidBias}
}

// Save the model into filename.
func (m *Model) Save(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	enc := gob.NewEncoder(f)
	return enc.Encode(m)
}

// Load a model saved with Save.
func Load(filename string, opts ...ModelOpt) (*Model, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	m, err := makeModel(Gaussian, opts...)
	if err != nil {
		return nil, err
	}
	dec := gob.NewDecoder(f)
	if err = dec.Decode(m); err != nil {
		return nil, errors.WithStack(err)
	}
	return m, nil
}
