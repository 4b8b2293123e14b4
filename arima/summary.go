package arima

import (
	"fmt"
	"strings"

	"github.com/sartorproj/arimabatch/stats"
	"github.com/sartorproj/arimabatch/timeseries"
)

// ljungBoxLags is the number of residual autocorrelations tested in a
// summary.
const ljungBoxLags = 10

// Summary describes the fit of one series.
type Summary struct {
	Name     string
	Order    Order
	Seasonal SeasonalOrder
	Params   Params
	LogLik   float64
	AIC      float64
	AICc     float64
	BIC      float64
	NObs     int

	LjungBox     *stats.PortmanteauResult
	BoxPierce    *stats.PortmanteauResult
	DurbinWatson *stats.DurbinWatsonResult
}

// Summary returns the fit summary of series i, or nil when the model is
// unfitted, i is out of range or the series failed.
func (m *Model) Summary(i int) *Summary {
	if !m.fitted || i < 0 || i >= len(m.series) {
		return nil
	}
	s := m.series[i]
	if !s.ok {
		return nil
	}

	l := m.lags
	fitdf := l.order.P + l.order.Q + l.seasonal.P + l.seasonal.Q
	resid := timeseries.New(m.residuals(s))

	return &Summary{
		Name:         s.name,
		Order:        l.order,
		Seasonal:     l.seasonal,
		Params:       s.params.clone(),
		LogLik:       s.ic.LogLik,
		AIC:          s.ic.AIC,
		AICc:         s.ic.AICc,
		BIC:          s.ic.BIC,
		NObs:         s.css.nObs,
		LjungBox:     stats.LjungBox(resid, ljungBoxLags, fitdf),
		BoxPierce:    stats.BoxPierce(resid, ljungBoxLags, fitdf),
		DurbinWatson: stats.DurbinWatson(resid.Valid()),
	}
}

// String renders the summary as a small text table.
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ARIMA%s  nobs=%d\n", s.Name, FormatOrder(s.Order, s.Seasonal), s.NObs)
	fmt.Fprintf(&b, "  mu      % .6f\n", s.Params.Mu)
	writeCoeffs(&b, "ar", s.Params.AR)
	writeCoeffs(&b, "ma", s.Params.MA)
	writeCoeffs(&b, "sar", s.Params.SAR)
	writeCoeffs(&b, "sma", s.Params.SMA)
	fmt.Fprintf(&b, "  sigma2  % .6f\n", s.Params.Sigma2)
	fmt.Fprintf(&b, "  loglik %.3f  aic %.3f  aicc %.3f  bic %.3f\n", s.LogLik, s.AIC, s.AICc, s.BIC)
	if s.LjungBox != nil {
		fmt.Fprintf(&b, "  ljung-box Q(%d)=%.3f p=%.4f\n", s.LjungBox.Lags, s.LjungBox.Statistic, s.LjungBox.PValue)
	}
	if s.BoxPierce != nil {
		fmt.Fprintf(&b, "  box-pierce Q(%d)=%.3f p=%.4f\n", s.BoxPierce.Lags, s.BoxPierce.Statistic, s.BoxPierce.PValue)
	}
	if s.DurbinWatson != nil {
		fmt.Fprintf(&b, "  durbin-watson %.3f\n", s.DurbinWatson.Statistic)
	}
	return b.String()
}

func writeCoeffs(b *strings.Builder, label string, coeffs []float64) {
	for i, c := range coeffs {
		fmt.Fprintf(b, "  %s.L%-3d % .6f\n", label, i+1, c)
	}
}
