// Package main walks through the batch ARIMA workflow on a CSV dataset:
// several models are fitted to every series at once, their parameters and
// information criteria are printed, and the forecasts are plotted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/sartorproj/arimabatch/arima"
	"github.com/sartorproj/arimabatch/autoarima"
	"github.com/sartorproj/arimabatch/internal/config"
	"github.com/sartorproj/arimabatch/internal/logging"
	"github.com/sartorproj/arimabatch/timeseries"
	"github.com/sartorproj/arimabatch/visualize"
)

func main() {
	configPath := flag.String("config", "", "config file path (built-in defaults when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "demo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	demo := cfg.Demo

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("Batch ARIMA demonstration")
	fmt.Println(strings.Repeat("=", 80))

	opts := timeseries.DefaultCSVOptions()
	opts.MaxBatch = demo.MaxBatch
	frame, err := timeseries.LoadFrameCSV(demo.Dataset, opts)
	if err != nil {
		return err
	}
	fmt.Printf("\nDataset %s: %d rows x %d series, %d missing values\n",
		demo.Dataset, frame.Rows(), frame.Cols(), frame.Missing())
	describe(frame)

	if demo.PredictStart >= frame.Rows() {
		return errors.Newf("predict_start=%d is past the %d loaded rows", demo.PredictStart, frame.Rows())
	}
	if err := os.MkdirAll(demo.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	output := OutputData{
		Dataset: demo.Dataset,
		Rows:    frame.Rows(),
		Names:   frame.Names,
		Horizon: *demo.Horizon,
		Level:   *demo.Level,
	}

	for i, mc := range demo.Models {
		fmt.Printf("\n%s\n[%d/%d] %s\n%s\n", strings.Repeat("=", 80), i+1, len(demo.Models), mc.Name, strings.Repeat("=", 80))

		result, err := runModel(ctx, demo, frame, mc, logger)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error().Err(err).Str("model", mc.Name).Msg("model skipped")
			fmt.Printf("   Error: %v\n", err)
			continue
		}
		output.Models = append(output.Models, *result)
	}

	if demo.AutoARIMA.Enabled {
		fmt.Printf("\n%s\nAuto-ARIMA\n%s\n", strings.Repeat("=", 80), strings.Repeat("=", 80))
		result, err := runAuto(ctx, demo, frame, logger)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error().Err(err).Msg("auto-arima skipped")
			fmt.Printf("   Error: %v\n", err)
		} else {
			output.Models = append(output.Models, *result)
		}
	}

	path := filepath.Join(demo.OutputDir, "forecast_results.json")
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode results")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write results")
	}
	fmt.Printf("\nExported %d models to %s\n", len(output.Models), path)
	fmt.Println(strings.Repeat("=", 80))
	return nil
}

// runModel fits one configured order to the whole batch, reports it and
// writes its chart and forecast table.
func runModel(ctx context.Context, demo config.DemoConfig, frame *timeseries.Frame, mc config.ModelConfig, logger zerolog.Logger) (*ModelResult, error) {
	newModel := func(f *timeseries.Frame) (*arima.Model, error) {
		return arima.New(f, mc.Order.Order(),
			arima.WithSeasonal(mc.Seasonal.SeasonalOrder()),
			arima.WithIntercept(*mc.Intercept),
			arima.WithMaxIter(mc.MaxIter),
			arima.WithWorkers(demo.Workers),
			arima.WithLogger(logger.With().Str("model", mc.Name).Logger()),
		)
	}

	model, err := newModel(frame)
	if err != nil {
		return nil, err
	}
	if err := fitBatch(ctx, model); err != nil {
		return nil, err
	}

	order := arima.FormatOrder(model.Order(), model.SeasonalOrder())
	fmt.Printf("   ARIMA%s intercept=%t\n", order, model.Intercept())
	printCriteria(model)
	for i := 0; i < model.BatchSize(); i++ {
		if s := model.Summary(i); s != nil {
			fmt.Println()
			fmt.Print(indent(s.String(), "   "))
		}
	}

	n := frame.Rows()
	pred, err := model.Predict(demo.PredictStart, n+*demo.Horizon)
	if err != nil {
		return nil, err
	}
	fc, err := model.ForecastWithInterval(*demo.Horizon, *demo.Level)
	if err != nil {
		return nil, err
	}

	chart := &visualize.Chart{
		History:         frame.Data,
		Prediction:      pred,
		PredictionStart: demo.PredictStart,
		Lower:           fc.Lower,
		Upper:           fc.Upper,
		BandStart:       n,
		Names:           frame.Names,
		Title:           fmt.Sprintf("%s ARIMA%s, %.0f%% interval", mc.Name, order, *demo.Level*100),
	}
	if err := writeOutputs(demo.OutputDir, mc.Name, chart, frame, fc); err != nil {
		return nil, err
	}

	result := newModelResult(mc.Name, order, model, fc)

	if demo.Holdout > 0 {
		if err := holdout(ctx, demo, frame, newModel, result); err != nil {
			logger.Warn().Err(err).Str("model", mc.Name).Msg("holdout evaluation skipped")
		}
	}
	return result, nil
}

// fitBatch fits model and tolerates failures of individual series.
func fitBatch(ctx context.Context, model *arima.Model) error {
	err := model.Fit(ctx)
	if err == nil {
		return nil
	}
	var fitErr *arima.FitError
	if !errors.As(err, &fitErr) || fitErr.AllFailed() {
		return err
	}
	for _, f := range fitErr.Failures {
		fmt.Printf("   %s: not fitted (%v)\n", f.Name, f.Err)
	}
	return nil
}

// holdout refits on all but the last Holdout rows and scores the
// forecasts of the held-out rows.
func holdout(ctx context.Context, demo config.DemoConfig, frame *timeseries.Frame, newModel func(*timeseries.Frame) (*arima.Model, error), result *ModelResult) error {
	h := demo.Holdout
	if h >= frame.Rows() {
		return errors.Newf("holdout=%d leaves no training rows", h)
	}

	model, err := newModel(frame.Head(frame.Rows() - h))
	if err != nil {
		return err
	}
	if err := fitBatch(ctx, model); err != nil {
		return err
	}
	fc, err := model.Forecast(h)
	if err != nil {
		return err
	}

	test := frame.Tail(h)
	fmt.Printf("   Holdout (%d rows):\n", h)
	for j := range result.Series {
		actual := test.Column(j).Values
		predicted := make([]float64, h)
		for i := range predicted {
			predicted[i] = fc.At(i, j)
		}
		rmse, mae, mape := accuracy(actual, predicted)
		result.Series[j].RMSE = number(rmse)
		result.Series[j].MAE = number(mae)
		result.Series[j].MAPE = number(mape)
		fmt.Printf("     %-16s RMSE=%.4f MAE=%.4f MAPE=%.2f%%\n", result.Series[j].Name, rmse, mae, mape)
	}
	return nil
}

// runAuto selects an order per series and reports the chosen models.
func runAuto(ctx context.Context, demo config.DemoConfig, frame *timeseries.Frame, logger zerolog.Logger) (*ModelResult, error) {
	search := demo.AutoARIMA.Search
	search.Logger = logger.With().Str("model", "auto_arima").Logger()
	if search.Workers == 0 {
		search.Workers = demo.Workers
	}

	auto, err := autoarima.AutoARIMA(ctx, frame, &search)
	if auto == nil {
		return nil, err
	}
	if err != nil {
		fmt.Printf("   %v\n", err)
	}

	for j, name := range auto.Names {
		if auto.Models[j] == nil {
			fmt.Printf("   %-16s no model (%v)\n", name, auto.Errs[j])
			continue
		}
		fmt.Printf("   %-16s ARIMA%-22s %s=%.3f (%d models)\n",
			name, auto.Orders[j], search.Criterion, auto.Criteria[j], auto.ModelsEvaluated[j])
	}

	fc, err := auto.Forecast(*demo.Horizon, *demo.Level)
	if err != nil {
		return nil, err
	}

	n := frame.Rows()
	chart := &visualize.Chart{
		History:         frame.Data,
		Prediction:      fc.Mean,
		PredictionStart: n,
		Lower:           fc.Lower,
		Upper:           fc.Upper,
		BandStart:       n,
		Names:           frame.Names,
		Title:           fmt.Sprintf("auto_arima (%s), %.0f%% interval", search.Criterion, *demo.Level*100),
	}
	if err := writeOutputs(demo.OutputDir, "auto_arima", chart, frame, fc); err != nil {
		return nil, err
	}

	return newAutoResult(auto, fc), nil
}

func writeOutputs(dir, name string, chart *visualize.Chart, frame *timeseries.Frame, fc *arima.Forecast) error {
	plotPath := filepath.Join(dir, name+".png")
	if err := visualize.SaveFile(plotPath, chart); err != nil {
		return err
	}

	csvPath := filepath.Join(dir, name+"_forecast.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return errors.Wrap(err, "create forecast csv")
	}
	if err := timeseries.SaveFrameCSV(f, forecastFrame(frame, fc)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close forecast csv")
	}

	fmt.Printf("   Wrote %s and %s\n", plotPath, csvPath)
	return nil
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	if !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
