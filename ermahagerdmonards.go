package rbm

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
	"gorgonia.org/vecf32"
)

type maebe struct {
	err error
}

func (m *maebe) matmul(a, b *tensor.Dense) (retVal *tensor.Dense) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = a.MatMul(b); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}

// rows returns the rows of a matrix. The rows share the backing of a.
func (m *maebe) rows(a *tensor.Dense) (retVal [][]float32) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = native.MatrixF32(a); m.err != nil {
		m.err = errors.Wrapf(m.err, "rows of %v", a.Shape())
	}
	return
}

func (m *maebe) vector(a *tensor.Dense) (retVal []float32) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = native.VectorF32(a); m.err != nil {
		m.err = errors.Wrapf(m.err, "vector of %v", a.Shape())
	}
	return
}

// transpose returns a transposed copy of a.
func (m *maebe) transpose(a *tensor.Dense) *tensor.Dense {
	rows := m.rows(a)
	if m.err != nil {
		return nil
	}
	r, c := a.Shape()[0], a.Shape()[1]
	retVal := newMatrix(c, r)
	data := retVal.Data().([]float32)
	for i, row := range rows {
		for j, v := range row {
			data[j*r+i] = v
		}
	}
	return retVal
}

// colSum sums a matrix along its rows.
func (m *maebe) colSum(a *tensor.Dense) []float32 {
	rows := m.rows(a)
	if m.err != nil {
		return nil
	}
	retVal := make([]float32, a.Shape()[1])
	for _, row := range rows {
		vecf32.Add(retVal, row)
	}
	return retVal
}

func newMatrix(r, c int) *tensor.Dense {
	return tensor.New(tensor.WithShape(r, c), tensor.Of(tensor.Float32))
}

func newVector(n int) *tensor.Dense {
	return tensor.New(tensor.WithShape(n), tensor.Of(tensor.Float32))
}

func checkMatrix(a *tensor.Dense, name string) error {
	if a == nil {
		return errors.Errorf("%s is nil", name)
	}
	if a.Dtype() != tensor.Float32 {
		return errors.Errorf("%s: expected %v, got %v", name, tensor.Float32, a.Dtype())
	}
	if a.Dims() != 2 {
		return errors.Errorf("%s: expected a matrix, got shape %v", name, a.Shape())
	}
	return nil
}

// asVector copies a into a 1-D tensor. Row vectors of shape (1, n) are accepted.
func asVector(a *tensor.Dense, name string) (*tensor.Dense, error) {
	if a == nil {
		return nil, errors.Errorf("%s is nil", name)
	}
	if a.Dtype() != tensor.Float32 {
		return nil, errors.Errorf("%s: expected %v, got %v", name, tensor.Float32, a.Dtype())
	}
	a = materialized(a)
	shp := a.Shape()
	var n int
	switch {
	case a.Dims() == 1:
		n = shp[0]
	case a.Dims() == 2 && shp[0] == 1:
		n = shp[1]
	default:
		return nil, errors.Errorf("%s: expected a vector, got shape %v", name, shp)
	}
	src := a.Data().([]float32)
	retVal := newVector(n)
	copy(retVal.Data().([]float32), src)
	return retVal, nil
}

// materialized returns a tensor whose Data() holds exactly its elements. Views share the backing of their parent
// and are copied out.
func materialized(a *tensor.Dense) *tensor.Dense {
	if a.IsMaterializable() {
		return a.Materialize().(*tensor.Dense)
	}
	return a
}

func cloneDense(a *tensor.Dense) *tensor.Dense {
	a = materialized(a)
	retVal := tensor.New(tensor.WithShape(a.Shape().Clone()...), tensor.Of(tensor.Float32))
	copy(retVal.Data().([]float32), a.Data().([]float32))
	return retVal
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}
