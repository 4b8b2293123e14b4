package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/sartorproj/arimabatch/timeseries"
)

func ar1(n int, phi float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + rng.NormFloat64()
	}
	return values
}

func TestACF(t *testing.T) {
	series := timeseries.New(ar1(300, 0.8, 1))
	acf := ACF(series, 10)

	if acf == nil {
		t.Fatal("ACF returned nil")
	}
	if len(acf) != 11 {
		t.Fatalf("Expected 11 values, got %d", len(acf))
	}
	if math.Abs(acf[0]-1.0) > 1e-10 {
		t.Errorf("ACF at lag 0 should be 1, got %f", acf[0])
	}
	if acf[1] < 0.5 {
		t.Errorf("Expected strong lag-1 autocorrelation for AR(1), got %f", acf[1])
	}
}

func TestACFConstantSeries(t *testing.T) {
	if acf := ACF(timeseries.New([]float64{3, 3, 3, 3}), 2); acf != nil {
		t.Errorf("Expected nil ACF for a constant series, got %v", acf)
	}
}

func TestACFSkipsMissing(t *testing.T) {
	values := ar1(200, 0.6, 2)
	full := ACF(timeseries.New(values), 5)

	gapped := append([]float64(nil), values...)
	gapped[50] = math.NaN()
	withGap := ACF(timeseries.New(gapped), 5)

	if withGap == nil {
		t.Fatal("ACF returned nil with a missing value")
	}
	for k := range withGap {
		if math.IsNaN(withGap[k]) {
			t.Fatalf("ACF at lag %d is NaN", k)
		}
		if math.Abs(withGap[k]-full[k]) > 0.1 {
			t.Errorf("Lag %d moved too much after one gap: %f vs %f", k, withGap[k], full[k])
		}
	}
}

func TestPACF(t *testing.T) {
	series := timeseries.New(ar1(300, 0.7, 3))
	pacf := PACF(series, 10)
	acf := ACF(series, 10)

	if pacf == nil {
		t.Fatal("PACF returned nil")
	}
	if math.Abs(pacf[0]-1.0) > 1e-10 {
		t.Errorf("PACF at lag 0 should be 1, got %f", pacf[0])
	}
	if math.Abs(pacf[1]-acf[1]) > 1e-12 {
		t.Errorf("PACF at lag 1 should equal ACF at lag 1: %f vs %f", pacf[1], acf[1])
	}
	for k := 2; k < len(pacf); k++ {
		if math.Abs(pacf[k]) > math.Abs(pacf[1]) {
			t.Errorf("PACF at lag %d (%f) exceeds lag 1 (%f) for AR(1)", k, pacf[k], pacf[1])
		}
	}
}

func TestACFWithConfidence(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i) + math.Sin(float64(i)/10)
	}

	result := ACFWithConfidence(timeseries.New(values), 20)
	if result == nil {
		t.Fatal("ACFWithConfidence returned nil")
	}

	expected := 1.96 / math.Sqrt(100)
	if math.Abs(result.ConfBounds-expected) > 1e-12 {
		t.Errorf("Expected confidence bounds %f, got %f", expected, result.ConfBounds)
	}
	if len(result.Lags) != len(result.Values) {
		t.Errorf("Lags and values length differ")
	}
}

func TestSignificantLags(t *testing.T) {
	values := []float64{1.0, 0.5, 0.3, 0.1, 0.05, -0.2, -0.5}

	significant := SignificantLags(values, 0.15)

	expected := []int{1, 2, 5, 6}
	if len(significant) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, significant)
	}
	for i := range expected {
		if significant[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, significant)
		}
	}
}

func TestADF(t *testing.T) {
	n := 200
	result := ADF(timeseries.New(ar1(n, 0, 7)), 0)
	if result == nil {
		t.Fatal("ADF returned nil for stationary data")
	}
	if !result.IsStationary {
		t.Errorf("Expected stationary, got stat=%f p=%f", result.Statistic, result.PValue)
	}

	walk := ar1(n, 1, 8)
	for i := range walk {
		walk[i] += float64(i) * 0.5
	}
	result = ADF(timeseries.New(walk), 0)
	if result == nil {
		t.Fatal("ADF returned nil for trending data")
	}
	if result.IsStationary {
		t.Errorf("Expected a unit root for a random walk, got stat=%f p=%f", result.Statistic, result.PValue)
	}

	// a deterministic trend plus a period-5 pattern is fitted exactly
	exact := make([]float64, n)
	for i := range exact {
		exact[i] = float64(i)*0.5 + float64(i%5-2)
	}
	if ADF(timeseries.New(exact), 0) != nil {
		t.Error("Expected nil for an exactly fitted series")
	}

	if ADF(timeseries.New([]float64{1, 2, 3}), 0) != nil {
		t.Error("Expected nil for a short series")
	}
}

func TestKPSS(t *testing.T) {
	n := 200
	stationary := make([]float64, n)
	for i := range stationary {
		stationary[i] = math.Sin(2 * math.Pi * float64(i) / 10)
	}

	result := KPSS(timeseries.New(stationary), "c", 0)
	if result == nil {
		t.Fatal("KPSS returned nil")
	}
	if !result.IsStationary {
		t.Errorf("Expected stationary, got stat=%f p=%f", result.Statistic, result.PValue)
	}

	trend := make([]float64, n)
	for i := range trend {
		trend[i] = float64(i) * 0.5
	}
	result = KPSS(timeseries.New(trend), "c", 0)
	if result == nil {
		t.Fatal("KPSS returned nil for trending data")
	}
	if result.IsStationary {
		t.Errorf("Expected a trend to be non-stationary around a level, stat=%f", result.Statistic)
	}

	ct := KPSS(timeseries.New(trend), "ct", 0)
	if ct == nil || ct.CriticalVals["5%"] != 0.146 {
		t.Errorf("Expected trend critical values for ct regression")
	}
}

func TestLjungBox(t *testing.T) {
	autocorrelated := timeseries.New(ar1(200, 0.9, 4))
	result := LjungBox(autocorrelated, 10, 0)

	if result == nil {
		t.Fatal("LjungBox returned nil")
	}
	if result.PValue > 0.01 {
		t.Errorf("Expected strong autocorrelation to be detected, p=%f", result.PValue)
	}
	if result.DOF != 10 {
		t.Errorf("Expected 10 degrees of freedom, got %d", result.DOF)
	}

	// Q = n(n+2) sum r_k^2/(n-k)
	acf := ACF(autocorrelated, 10)
	q := 0.0
	for k := 1; k <= 10; k++ {
		q += acf[k] * acf[k] / float64(200-k)
	}
	q *= 200 * 202
	if math.Abs(q-result.Statistic) > 1e-9 {
		t.Errorf("Expected Q=%f, got %f", q, result.Statistic)
	}

	whiteNoise := timeseries.New(ar1(300, 0, 5))
	wn := LjungBox(whiteNoise, 10, 2)
	if wn == nil {
		t.Fatal("LjungBox returned nil for white noise")
	}
	if wn.DOF != 8 {
		t.Errorf("Expected fitdf to reduce DOF to 8, got %d", wn.DOF)
	}
	if wn.PValue < 0.001 {
		t.Errorf("White noise flagged as autocorrelated, p=%f", wn.PValue)
	}
}

func TestBoxPierce(t *testing.T) {
	series := timeseries.New(ar1(100, 0.5, 6))
	bp := BoxPierce(series, 10, 0)
	lb := LjungBox(series, 10, 0)

	if bp == nil || lb == nil {
		t.Fatal("Portmanteau test returned nil")
	}
	// Ljung-Box weights every term up, so its statistic is larger
	if bp.Statistic >= lb.Statistic {
		t.Errorf("Expected Box-Pierce %f < Ljung-Box %f", bp.Statistic, lb.Statistic)
	}
	if LjungBox(timeseries.New([]float64{1, 2, 3}), 10, 0) != nil {
		t.Error("Expected nil for a short series")
	}
}

func TestDurbinWatson(t *testing.T) {
	alternating := DurbinWatson([]float64{1, -1, 1, -1, 1, -1, 1, -1})
	if alternating == nil || alternating.Statistic <= 2 {
		t.Errorf("Expected DW > 2 for alternating residuals")
	}

	persistent := DurbinWatson([]float64{1, 1, 1, 1, -1, -1, -1, -1})
	if persistent == nil || math.Abs(persistent.Statistic-0.5) > 1e-12 {
		t.Errorf("Expected DW = 0.5 for persistent residuals")
	}

	if DurbinWatson([]float64{0, 0}) != nil {
		t.Error("Expected nil for zero residuals")
	}
}

func TestDecompose(t *testing.T) {
	n := 120
	period := 12
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		trend := float64(i) * 0.5
		seasonal := 10 * math.Sin(2*math.Pi*float64(i%period)/float64(period))
		values[i] = trend + seasonal + float64(i%5-2)/5
	}

	series := timeseries.New(values)
	result := Decompose(series, period, "additive")
	if result == nil {
		t.Fatal("Decompose returned nil")
	}

	if result.Trend.Len() != n || result.Seasonal.Len() != n || result.Residual.Len() != n {
		t.Fatalf("Component length mismatch")
	}

	for i := period; i < n-period; i++ {
		reconstructed := result.Trend.Values[i] + result.Seasonal.Values[i] + result.Residual.Values[i]
		if math.Abs(reconstructed-series.Values[i]) > 1e-9 {
			t.Errorf("Reconstruction error at index %d: original=%f, reconstructed=%f",
				i, series.Values[i], reconstructed)
		}
	}

	// Edges of the centered moving average are undefined
	if !math.IsNaN(result.Trend.Values[0]) {
		t.Errorf("Expected NaN trend at the edge, got %f", result.Trend.Values[0])
	}

	if Decompose(series.Slice(0, 20), period, "additive") != nil {
		t.Error("Expected nil for fewer than two periods")
	}
}

func TestDecomposeMultiplicative(t *testing.T) {
	n := 48
	period := 4
	factors := []float64{0.8, 1.1, 1.2, 0.9}
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 * factors[i%period]
	}

	result := Decompose(timeseries.New(values), period, "multiplicative")
	if result == nil {
		t.Fatal("Decompose returned nil")
	}

	mean := 0.0
	for i := 0; i < period; i++ {
		mean += result.Seasonal.Values[i]
	}
	if math.Abs(mean/float64(period)-1) > 1e-9 {
		t.Errorf("Multiplicative seasonal factors should average 1, got %f", mean/float64(period))
	}
}
