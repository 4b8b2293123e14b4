package main

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/sartorproj/arimabatch/arima"
	"github.com/sartorproj/arimabatch/autoarima"
	"github.com/sartorproj/arimabatch/stats"
	"github.com/sartorproj/arimabatch/timeseries"
)

// SeriesReport holds the results of one series for JSON export. Values that
// are not finite are exported as null.
type SeriesReport struct {
	Name      string     `json:"name"`
	Order     string     `json:"order,omitempty"`
	Error     string     `json:"error,omitempty"`
	Mu        *float64   `json:"mu"`
	AR        []*float64 `json:"ar,omitempty"`
	MA        []*float64 `json:"ma,omitempty"`
	SAR       []*float64 `json:"sar,omitempty"`
	SMA       []*float64 `json:"sma,omitempty"`
	Sigma2    *float64   `json:"sigma2"`
	LogLik    *float64   `json:"loglik"`
	AIC       *float64   `json:"aic"`
	AICc      *float64   `json:"aicc"`
	BIC       *float64   `json:"bic"`
	Forecasts []*float64 `json:"forecasts"`
	Lower     []*float64 `json:"lower"`
	Upper     []*float64 `json:"upper"`
	RMSE      *float64   `json:"rmse,omitempty"`
	MAE       *float64   `json:"mae,omitempty"`
	MAPE      *float64   `json:"mape,omitempty"`
}

// ModelResult holds one fitted batch model for JSON export.
type ModelResult struct {
	ModelName string         `json:"model_name"`
	Order     string         `json:"order"`
	Series    []SeriesReport `json:"series"`
}

// OutputData holds all results of a demo run.
type OutputData struct {
	Dataset string        `json:"dataset"`
	Rows    int           `json:"rows"`
	Names   []string      `json:"names"`
	Horizon int           `json:"horizon"`
	Level   float64       `json:"level"`
	Models  []ModelResult `json:"models"`
}

func newModelResult(name, order string, model *arima.Model, fc *arima.Forecast) *ModelResult {
	params := model.Params()
	loglik, aic, aicc, bic := model.LogLik(), model.AIC(), model.AICc(), model.BIC()

	result := &ModelResult{ModelName: name, Order: order}
	for j, series := range model.Names() {
		r := seriesReport(series, params[j], fc, j)
		r.LogLik = number(loglik[j])
		r.AIC = number(aic[j])
		r.AICc = number(aicc[j])
		r.BIC = number(bic[j])
		if err := model.Err(j); err != nil {
			r.Error = err.Error()
		}
		result.Series = append(result.Series, r)
	}
	return result
}

func newAutoResult(auto *autoarima.Result, fc *arima.Forecast) *ModelResult {
	result := &ModelResult{ModelName: "auto_arima", Order: "per series"}
	for j, name := range auto.Names {
		model := auto.Models[j]
		if model == nil {
			r := seriesReport(name, arima.Params{Mu: math.NaN(), Sigma2: math.NaN()}, fc, j)
			if auto.Errs[j] != nil {
				r.Error = auto.Errs[j].Error()
			}
			result.Series = append(result.Series, r)
			continue
		}

		r := seriesReport(name, model.Params()[0], fc, j)
		r.Order = auto.Orders[j].String()
		r.LogLik = number(model.LogLik()[0])
		r.AIC = number(model.AIC()[0])
		r.AICc = number(model.AICc()[0])
		r.BIC = number(model.BIC()[0])
		result.Series = append(result.Series, r)
	}
	return result
}

func seriesReport(name string, p arima.Params, fc *arima.Forecast, j int) SeriesReport {
	return SeriesReport{
		Name:      name,
		Mu:        number(p.Mu),
		AR:        numbers(p.AR),
		MA:        numbers(p.MA),
		SAR:       numbers(p.SAR),
		SMA:       numbers(p.SMA),
		Sigma2:    number(p.Sigma2),
		Forecasts: numbers(mat.Col(nil, j, fc.Mean)),
		Lower:     numbers(mat.Col(nil, j, fc.Lower)),
		Upper:     numbers(mat.Col(nil, j, fc.Upper)),
	}
}

// forecastFrame lays out the forecast as <name>_mean, <name>_lower and
// <name>_upper columns indexed by the row numbers that follow the data.
func forecastFrame(frame *timeseries.Frame, fc *arima.Forecast) *timeseries.Frame {
	h, cols := fc.Mean.Dims()
	n := frame.Rows()

	out := &timeseries.Frame{
		Index: make([]string, h),
		Names: make([]string, 0, 3*cols),
		Data:  mat.NewDense(h, 3*cols, nil),
	}
	for i := range out.Index {
		out.Index[i] = strconv.Itoa(n + i)
	}
	for j, name := range frame.Names {
		out.Names = append(out.Names, name+"_mean", name+"_lower", name+"_upper")
		for i := 0; i < h; i++ {
			out.Data.Set(i, 3*j, fc.Mean.At(i, j))
			out.Data.Set(i, 3*j+1, fc.Lower.At(i, j))
			out.Data.Set(i, 3*j+2, fc.Upper.At(i, j))
		}
	}
	return out
}

// describe prints summary statistics and stationarity tests per series.
func describe(frame *timeseries.Frame) {
	fmt.Printf("\n   %-16s %5s %5s %10s %10s %8s %8s %6s\n",
		"series", "n", "lead", "mean", "std", "ADF p", "KPSS p", "ndiffs")
	for j := 0; j < frame.Cols(); j++ {
		s := frame.Column(j)

		adfP, kpssP := math.NaN(), math.NaN()
		if adf := stats.ADF(s, 0); adf != nil {
			adfP = adf.PValue
		}
		if kpss := stats.KPSS(s, "c", 0); kpss != nil {
			kpssP = kpss.PValue
		}

		fmt.Printf("   %-16s %5d %5d %10.3f %10.3f %8.4f %8.4f %6d\n",
			frame.Names[j], len(s.Valid()), s.LeadingMissing(), s.Mean(), s.Std(),
			adfP, kpssP, stats.NDiffs(s, 2, "kpss"))
	}

	fmt.Printf("\n   %-16s %-28s %s\n", "series", "significant ACF lags", "significant PACF lags")
	for j := 0; j < frame.Cols(); j++ {
		acf, pacf := significantLags(frame.Column(j), correlogramLags)
		fmt.Printf("   %-16s %-28s %s\n", frame.Names[j], fmt.Sprint(acf), fmt.Sprint(pacf))
	}
}

// correlogramLags is the number of lags inspected by describe.
const correlogramLags = 12

// significantLags returns the ACF and PACF lags outside the 95% bounds.
func significantLags(s *timeseries.Series, maxLag int) (acf, pacf []int) {
	if r := stats.ACFWithConfidence(s, maxLag); r != nil {
		acf = stats.SignificantLags(r.Values, r.ConfBounds)
	}
	if r := stats.PACFWithConfidence(s, maxLag); r != nil {
		pacf = stats.SignificantLags(r.Values, r.ConfBounds)
	}
	return acf, pacf
}

func printCriteria(model *arima.Model) {
	loglik, aic, aicc, bic := model.LogLik(), model.AIC(), model.AICc(), model.BIC()
	nobs := model.NObs()
	fmt.Printf("\n   %-16s %6s %12s %12s %12s %12s\n", "series", "nobs", "loglik", "aic", "aicc", "bic")
	for j, name := range model.Names() {
		fmt.Printf("   %-16s %6d %12.3f %12.3f %12.3f %12.3f\n", name, nobs[j], loglik[j], aic[j], aicc[j], bic[j])
	}
}

// accuracy calculates forecast accuracy metrics over the rows where both
// values are present.
func accuracy(actual, predicted []float64) (rmse, mae, mape float64) {
	n := 0
	for i := 0; i < min(len(actual), len(predicted)); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		d := actual[i] - predicted[i]
		rmse += d * d
		mae += math.Abs(d)
		if actual[i] != 0 {
			mape += math.Abs(d) / math.Abs(actual[i]) * 100
		}
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return math.Sqrt(rmse / float64(n)), mae / float64(n), mape / float64(n)
}

func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func numbers(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = number(v)
	}
	return out
}
