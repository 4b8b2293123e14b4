// Package timeseries provides time series containers and CSV loading.
//
// A Series holds one column of observations. A Frame holds a batch of
// independent series that share a time axis: rows are time steps and
// columns are series, stored in a gonum dense matrix. Missing observations
// are represented as NaN throughout.
//
// # Loading a batch from CSV
//
// The first CSV column is a date or index and is kept as row labels. Every
// other column is a named numeric series:
//
//	opts := timeseries.DefaultCSVOptions()
//	opts.MaxBatch = 4 // read at most four series
//	frame, err := timeseries.LoadFrameCSV("population_estimate.csv", opts)
//
// Empty cells and tokens such as NA or NaN become NaN.
//
// # Working with a single series
//
//	s := frame.Column(0)
//	diff := s.Diff()             // first difference
//	sdiff := s.SeasonalDiff(12)  // seasonal difference
//	mean := s.Mean()             // NaN-ignoring mean
package timeseries
