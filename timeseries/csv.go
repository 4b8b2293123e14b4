package timeseries

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	MaxBatch      int      // Maximum number of series columns to read (0: all)
	Delimiter     rune     // Field delimiter (default: ',')
	SkipRows      int      // Number of rows to skip before the header
	MissingTokens []string // Cell values read as missing, in addition to empty cells
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		Delimiter:     ',',
		MissingTokens: []string{"NA", "NaN", "nan", "null", "NULL", "N/A", "-"},
	}
}

// LoadFrameCSV loads a batch of series from a CSV file.
//
// The first column is a date or index and becomes Frame.Index. Every other
// column, up to MaxBatch of them, is read as a numeric series. Missing
// cells become NaN.
func LoadFrameCSV(filename string, opts *CSVOptions) (*Frame, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	defer file.Close()

	f, err := LoadFrameCSVFromReader(file, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return f, nil
}

// LoadFrameCSVFromReader loads a batch of series from an io.Reader.
func LoadFrameCSVFromReader(r io.Reader, opts *CSVOptions) (*Frame, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}

	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	// Skipped preamble rows may have any width; data rows are checked
	// against the header below.
	reader.FieldsPerRecord = -1

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, errors.Wrapf(err, "skip row %d", i+1)
		}
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty CSV input")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if len(header) < 2 {
		return nil, errors.Newf("expected an index column and at least one series, got %d columns", len(header))
	}

	batch := len(header) - 1
	if opts.MaxBatch > 0 && opts.MaxBatch < batch {
		batch = opts.MaxBatch
	}

	names := make([]string, batch)
	for j := range names {
		names[j] = strings.TrimSpace(header[j+1])
	}

	missing := make(map[string]struct{}, len(opts.MissingTokens))
	for _, tok := range opts.MissingTokens {
		missing[tok] = struct{}{}
	}

	var index []string
	columns := make([][]float64, batch)
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", row)
		}
		if len(record) != len(header) {
			return nil, errors.Newf("row %d: expected %d columns, got %d", row, len(header), len(record))
		}

		index = append(index, strings.TrimSpace(record[0]))
		for j := 0; j < batch; j++ {
			v, err := parseCell(record[j+1], missing)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %q", row, names[j])
			}
			columns[j] = append(columns[j], v)
		}
	}

	if len(index) == 0 {
		return nil, errors.New("no data rows in CSV")
	}

	frame, err := NewFrame(names, columns)
	if err != nil {
		return nil, err
	}
	frame.Index = index
	return frame, nil
}

func parseCell(cell string, missing map[string]struct{}) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN(), nil
	}
	if _, ok := missing[cell]; ok {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %q", cell)
	}
	return v, nil
}

// SaveFrameCSV writes a frame as CSV with an index column. NaN is written
// as an empty cell.
func SaveFrameCSV(w io.Writer, f *Frame) error {
	bw := bufio.NewWriter(w)
	writer := csv.NewWriter(bw)

	header := append([]string{"index"}, f.Names...)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	rows, cols := f.Data.Dims()
	record := make([]string, cols+1)
	for i := 0; i < rows; i++ {
		if len(f.Index) == rows {
			record[0] = f.Index[i]
		} else {
			record[0] = strconv.Itoa(i)
		}
		for j := 0; j < cols; j++ {
			v := f.Data.At(i, j)
			if math.IsNaN(v) {
				record[j+1] = ""
				continue
			}
			record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	return bw.Flush()
}
