package server

import (
	"encoding/json"
	"math"

	"github.com/sartorproj/arimabatch/internal/config"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string         `json:"code,omitempty"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// ForecastRequest is the body of POST /v1/forecast. Series are columns;
// null entries are missing observations. Shorter series are aligned to
// the end of the longest one.
type ForecastRequest struct {
	Series    [][]*float64          `json:"series" validate:"required,min=1,max=1024,dive,required,min=1"`
	Names     []string              `json:"names,omitempty"`
	Order     config.OrderConfig    `json:"order"`
	Seasonal  config.SeasonalConfig `json:"seasonal"`
	Intercept *bool                 `json:"intercept" default:"true"`
	Horizon   *int                  `json:"horizon" default:"10" validate:"required,min=1,max=1000"`
	Level     *float64              `json:"level" default:"0.95" validate:"required,gt=0,lt=1"`
}

// ForecastResponse is the data of a successful forecast.
type ForecastResponse struct {
	Order   string         `json:"order"`
	Horizon int            `json:"horizon"`
	Level   float64        `json:"level"`
	Cached  bool           `json:"cached"`
	Series  []SeriesResult `json:"series"`
}

// SeriesResult holds the fit and forecast of one series. Error is set and
// the numbers are null when the series could not be fitted.
type SeriesResult struct {
	Name   string     `json:"name"`
	Error  string     `json:"error,omitempty"`
	Params ParamsJSON `json:"params"`
	NObs   int        `json:"nobs"`
	LogLik Float      `json:"loglik"`
	AIC    Float      `json:"aic"`
	AICc   Float      `json:"aicc"`
	BIC    Float      `json:"bic"`
	Mean   []Float    `json:"mean"`
	Lower  []Float    `json:"lower"`
	Upper  []Float    `json:"upper"`
}

// ParamsJSON mirrors arima.Params.
type ParamsJSON struct {
	Mu     Float   `json:"mu"`
	AR     []Float `json:"ar"`
	MA     []Float `json:"ma"`
	SAR    []Float `json:"sar"`
	SMA    []Float `json:"sma"`
	Sigma2 Float   `json:"sigma2"`
}

// Float encodes NaN and infinities as null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func floats(v []float64) []Float {
	out := make([]Float, len(v))
	for i, x := range v {
		out[i] = Float(x)
	}
	return out
}
