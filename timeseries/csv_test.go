package timeseries

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const populationCSV = `date,Australia,Austria,Belgium,Brazil
1960,10276477,7047539,9153489,72207554
1961,10483000,7086299,9183948,74351763
1962,10742000,,9220578,76573248
1963,10950000,7175811,NA,78854019
1964,11167000,7223801,9289770,81168654`

func TestLoadFrameCSVFromReader(t *testing.T) {
	frame, err := LoadFrameCSVFromReader(strings.NewReader(populationCSV), nil)
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}

	if frame.Rows() != 5 {
		t.Errorf("Expected 5 rows, got %d", frame.Rows())
	}
	if frame.Cols() != 4 {
		t.Errorf("Expected 4 series, got %d", frame.Cols())
	}

	// The index column is kept as labels, not data
	if frame.Index[0] != "1960" || frame.Index[4] != "1964" {
		t.Errorf("Unexpected index %v", frame.Index)
	}
	if frame.Names[0] != "Australia" || frame.Names[3] != "Brazil" {
		t.Errorf("Unexpected names %v", frame.Names)
	}

	if got := frame.Data.At(0, 0); got != 10276477 {
		t.Errorf("Expected 10276477 at (0,0), got %f", got)
	}
}

func TestLoadFrameCSVMissingValues(t *testing.T) {
	frame, err := LoadFrameCSVFromReader(strings.NewReader(populationCSV), nil)
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}

	if !math.IsNaN(frame.Data.At(2, 1)) {
		t.Errorf("Expected empty cell to be NaN, got %f", frame.Data.At(2, 1))
	}
	if !math.IsNaN(frame.Data.At(3, 2)) {
		t.Errorf("Expected NA cell to be NaN, got %f", frame.Data.At(3, 2))
	}
	if frame.Missing() != 2 {
		t.Errorf("Expected 2 missing cells, got %d", frame.Missing())
	}
}

func TestLoadFrameCSVMaxBatch(t *testing.T) {
	opts := DefaultCSVOptions()
	opts.MaxBatch = 2

	frame, err := LoadFrameCSVFromReader(strings.NewReader(populationCSV), opts)
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}

	if frame.Cols() != 2 {
		t.Errorf("Expected batch capped at 2, got %d", frame.Cols())
	}
	if frame.Names[1] != "Austria" {
		t.Errorf("Expected second column Austria, got %s", frame.Names[1])
	}

	// A cap larger than the file is not an error
	opts.MaxBatch = 100
	frame, err = LoadFrameCSVFromReader(strings.NewReader(populationCSV), opts)
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}
	if frame.Cols() != 4 {
		t.Errorf("Expected all 4 series, got %d", frame.Cols())
	}
}

func TestLoadFrameCSVDelimiterAndSkip(t *testing.T) {
	data := "# exported\nds;a;b\n1;1.5;2\n2;2.5;3\n"
	opts := DefaultCSVOptions()
	opts.Delimiter = ';'
	opts.SkipRows = 1

	frame, err := LoadFrameCSVFromReader(strings.NewReader(data), opts)
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}
	if frame.Rows() != 2 || frame.Cols() != 2 {
		t.Fatalf("Expected 2x2 frame, got %dx%d", frame.Rows(), frame.Cols())
	}
	if frame.Data.At(1, 0) != 2.5 {
		t.Errorf("Expected 2.5, got %f", frame.Data.At(1, 0))
	}
}

func TestLoadFrameCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"index only", "ds\n1\n2\n"},
		{"header only", "ds,y\n"},
		{"bad number", "ds,y\n1,abc\n"},
		{"ragged", "ds,y,z\n1,2,3\n2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFrameCSVFromReader(strings.NewReader(tt.data), nil); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoadFrameCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.csv")
	if err := os.WriteFile(path, []byte(populationCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	frame, err := LoadFrameCSV(path, nil)
	if err != nil {
		t.Fatalf("Failed to load CSV file: %v", err)
	}
	if frame.Cols() != 4 {
		t.Errorf("Expected 4 series, got %d", frame.Cols())
	}

	if _, err := LoadFrameCSV(filepath.Join(t.TempDir(), "missing.csv"), nil); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestSaveFrameCSV(t *testing.T) {
	frame, err := LoadFrameCSVFromReader(strings.NewReader(populationCSV), nil)
	if err != nil {
		t.Fatalf("Failed to load CSV: %v", err)
	}

	var buf bytes.Buffer
	if err := SaveFrameCSV(&buf, frame); err != nil {
		t.Fatalf("Failed to save CSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected header and 5 rows, got %d lines", len(lines))
	}
	if lines[0] != "index,Australia,Austria,Belgium,Brazil" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if lines[3] != "1962,10742000,,9220578,76573248" {
		t.Errorf("Expected NaN written as empty cell, got %q", lines[3])
	}
}
