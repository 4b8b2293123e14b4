package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/arimabatch/timeseries"
)

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // Critical values at 1%, 5%, 10%
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller test for a unit root, with a
// constant and no trend. The null hypothesis is a unit root; p < 0.05
// rejects it. Missing observations are dropped before testing. maxLag <= 0
// selects floor((n-1)^(1/3)). ADF returns nil for fewer than 10
// observations and for deterministic series that the test regression fits
// exactly, where the statistic is undefined.
func ADF(series *timeseries.Series, maxLag int) *ADFResult {
	y := series.Valid()
	n := len(y)
	if n < 10 {
		return nil
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	dy := make([]float64, n-1)
	for i := 1; i < n; i++ {
		dy[i-1] = y[i] - y[i-1]
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum gamma_i*delta_y_{t-i}
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}
	cols := 2 + maxLag
	x := mat.NewDense(nObs, cols, nil)
	target := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		target.SetVec(i, dy[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, y[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, dy[t-j])
		}
	}

	coeffs, se, ok := olsRegression(x, target)
	if !ok {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		Lags:      maxLag,
		NObs:      nObs,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue < 0.05,
	}
}

// exactFitTol is the residual to total sum of squares ratio below which a
// regression is treated as an exact fit.
const exactFitTol = 1e-12

// olsRegression returns OLS coefficients and their standard errors. ok is
// false for a singular design or an exact fit.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64, ok bool) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil, false
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, nil, false
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var resid mat.VecDense
	resid.SubVec(y, &fitted)
	rss := mat.Dot(&resid, &resid)
	mean := mat.Sum(y) / float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		d := y.AtVec(i) - mean
		tss += d * d
	}
	if rss <= exactFitTol*tss {
		return nil, nil, false
	}
	s2 := rss / float64(n-k)

	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * inv.At(i, i))
		if stdErrors[i] == 0 || math.IsNaN(stdErrors[i]) {
			return nil, nil, false
		}
	}
	return coeffs, stdErrors, true
}

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test.
// The null hypothesis is stationarity around a level ("c") or a linear
// trend ("ct"); p < 0.05 rejects it. Missing observations are dropped.
func KPSS(series *timeseries.Series, regression string, nlags int) *KPSSResult {
	y := series.Valid()
	n := len(y)
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if nlags >= n {
		nlags = n - 1
	}

	residuals := make([]float64, n)
	if regression == "ct" {
		t := make([]float64, n)
		for i := range t {
			t[i] = float64(i)
		}
		a, b := stat.LinearRegression(t, y, nil, false)
		for i, v := range y {
			residuals[i] = v - a - b*t[i]
		}
	} else {
		mean := stat.Mean(y, nil)
		for i, v := range y {
			residuals[i] = v - mean
		}
	}

	// Long-run variance with Bartlett weights (Newey-West)
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1 - float64(l)/float64(nlags+1)) * cov
	}
	if s2 <= 0 {
		s2 = 1e-10
	}

	etaSq, cum := 0.0, 0.0
	for _, r := range residuals {
		cum += r
		etaSq += cum * cum
	}
	kpssStat := etaSq / (float64(n) * float64(n) * s2)

	criticalVals := map[string]float64{"10%": 0.347, "5%": 0.463, "1%": 0.739}
	if regression == "ct" {
		criticalVals = map[string]float64{"10%": 0.119, "5%": 0.146, "1%": 0.216}
	}

	pValue := kpssPValue(kpssStat, regression)

	return &KPSSResult{
		Statistic:    kpssStat,
		PValue:       pValue,
		Lags:         nlags,
		CriticalVals: criticalVals,
		IsStationary: pValue >= 0.05,
	}
}

// mackinnonPValue maps an ADF statistic (constant, no trend) to an
// approximate p-value from asymptotic MacKinnon critical values.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// kpssPValue interpolates the KPSS tables. Values are truncated at 0.01
// and 0.10 like the tabulated range.
func kpssPValue(stat float64, regression string) float64 {
	if regression == "ct" {
		switch {
		case stat > 0.216:
			return 0.01
		case stat > 0.146:
			return 0.05
		case stat > 0.119:
			return 0.10
		default:
			return math.Min(0.10+(0.119-stat)*2, 1)
		}
	}

	switch {
	case stat > 0.739:
		return 0.01
	case stat > 0.463:
		return 0.05
	case stat > 0.347:
		return 0.10
	default:
		return math.Min(0.10+(0.347-stat)*0.5, 1)
	}
}
