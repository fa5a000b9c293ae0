package rbm

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// History is the record of a training run, one entry per iteration.
type History struct {
	Name       string
	Iterations []int
	Errors     []float32 // reconstruction error of the last batch
	Drifts     []float32 // mean squared change of the weights
	Batches    []int     // number of batches processed
	Rows       []int     // number of samples processed

	Converged bool // whether training stopped before the iteration budget ran out
}

func newHistory(name string) *History {
	return &History{
		Name:       name,
		Iterations: make([]int, 0, 64),
		Errors:     make([]float32, 0, 64),
		Drifts:     make([]float32, 0, 64),
		Batches:    make([]int, 0, 64),
		Rows:       make([]int, 0, 64),
	}
}

func (h *History) record(iter int, err, drift float32, batches, rows int) {
	h.Iterations = append(h.Iterations, iter)
	h.Errors = append(h.Errors, err)
	h.Drifts = append(h.Drifts, drift)
	h.Batches = append(h.Batches, batches)
	h.Rows = append(h.Rows, rows)
}

// Len returns the number of iterations recorded.
func (h *History) Len() int { return len(h.Iterations) }

// Last returns the error and drift of the last recorded iteration.
func (h *History) Last() (err, drift float32) {
	if h.Len() == 0 {
		return 0, 0
	}
	return h.Errors[h.Len()-1], h.Drifts[h.Len()-1]
}

// WriteCSV writes the history as a CSV with a header.
func (h *History) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"iteration", "error", "drift", "batches", "rows"}); err != nil {
		return err
	}
	records := make([][]string, 0, h.Len())
	for i, it := range h.Iterations {
		records = append(records, []string{
			strconv.Itoa(it),
			strconv.FormatFloat(float64(h.Errors[i]), 'g', -1, 32),
			strconv.FormatFloat(float64(h.Drifts[i]), 'g', -1, 32),
			strconv.Itoa(h.Batches[i]),
			strconv.Itoa(h.Rows[i]),
		})
	}
	return cw.WriteAll(records)
}

// Dump writes the history into filename.
func (h *History) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return h.WriteCSV(f)
}
