package timeseries

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyFrame is returned when a frame would hold no series or no rows.
var ErrEmptyFrame = errors.New("frame has no data")

// Frame is a batch of independent series sharing a time axis.
// Rows of Data are time steps and columns are series.
type Frame struct {
	Index []string // row labels, typically dates
	Names []string // column names
	Data  *mat.Dense
}

// NewFrame builds a frame from equally long columns.
// Names may be nil, in which case columns are named by position.
func NewFrame(names []string, columns [][]float64) (*Frame, error) {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return nil, ErrEmptyFrame
	}
	if names != nil && len(names) != len(columns) {
		return nil, errors.Newf("got %d names for %d columns", len(names), len(columns))
	}

	rows := len(columns[0])
	data := mat.NewDense(rows, len(columns), nil)
	for j, col := range columns {
		if len(col) != rows {
			return nil, errors.Newf("column %d has %d rows, expected %d", j, len(col), rows)
		}
		data.SetCol(j, col)
	}

	if names == nil {
		names = defaultNames(len(columns))
	}

	return &Frame{Names: names, Data: data}, nil
}

// NewFrameFromSeries stacks series of equal length into a frame.
func NewFrameFromSeries(series ...*Series) (*Frame, error) {
	names := make([]string, len(series))
	columns := make([][]float64, len(series))
	for i, s := range series {
		names[i] = s.Name
		columns[i] = s.Values
	}
	return NewFrame(names, columns)
}

func defaultNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "series_" + strconv.Itoa(i)
	}
	return names
}

// Rows returns the number of time steps.
func (f *Frame) Rows() int {
	r, _ := f.Data.Dims()
	return r
}

// Cols returns the number of series in the batch.
func (f *Frame) Cols() int {
	_, c := f.Data.Dims()
	return c
}

// Column returns series j as a Series. The values are copied.
func (f *Frame) Column(j int) *Series {
	return &Series{
		Values: mat.Col(nil, j, f.Data),
		Name:   f.Names[j],
	}
}

// Columns returns copies of all columns.
func (f *Frame) Columns() [][]float64 {
	out := make([][]float64, f.Cols())
	for j := range out {
		out[j] = mat.Col(nil, j, f.Data)
	}
	return out
}

// Select returns a new frame holding the given columns in order.
func (f *Frame) Select(cols ...int) (*Frame, error) {
	names := make([]string, len(cols))
	columns := make([][]float64, len(cols))
	for i, j := range cols {
		if j < 0 || j >= f.Cols() {
			return nil, errors.Newf("column %d out of range [0,%d)", j, f.Cols())
		}
		names[i] = f.Names[j]
		columns[i] = mat.Col(nil, j, f.Data)
	}
	out, err := NewFrame(names, columns)
	if err != nil {
		return nil, err
	}
	out.Index = f.Index
	return out, nil
}

// Head returns the first n rows.
func (f *Frame) Head(n int) *Frame {
	return f.rows(0, min(n, f.Rows()))
}

// Tail returns the last n rows.
func (f *Frame) Tail(n int) *Frame {
	rows := f.Rows()
	return f.rows(max(rows-n, 0), rows)
}

func (f *Frame) rows(start, end int) *Frame {
	if start >= end {
		return &Frame{Names: f.Names, Data: &mat.Dense{}}
	}
	sub := mat.DenseCopyOf(f.Data.Slice(start, end, 0, f.Cols()))
	var index []string
	if len(f.Index) == f.Rows() {
		index = append([]string(nil), f.Index[start:end]...)
	}
	return &Frame{Index: index, Names: f.Names, Data: sub}
}

// Missing returns the number of NaN cells in the frame.
func (f *Frame) Missing() int {
	count := 0
	rows, cols := f.Data.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(f.Data.At(i, j)) {
				count++
			}
		}
	}
	return count
}
