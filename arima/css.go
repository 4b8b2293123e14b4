package arima

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/sartorproj/arimabatch/stats"
	"github.com/sartorproj/arimabatch/timeseries"
)

// minVariance floors SSE/n so that a perfect fit keeps a finite objective.
const minVariance = 1e-300

// cssState is the outcome of one conditional-sum-of-squares pass over a
// series with its leading missing values removed.
type cssState struct {
	// yFilled is the series with interior gaps imputed by their one-step
	// predictions.
	yFilled []float64
	// z and e are aligned with the differenced series, so index i refers
	// to yFilled[i+len(diff)-1].
	z []float64
	e []float64
	// observed marks residuals that enter the sum of squares.
	observed []bool
	sse      float64
	nObs     int
}

// runCSS computes residuals of
// phi(B)Phi(B^s)(w_t - mu) = theta(B)Theta(B^s) e_t with w = diff(B) y.
// The recursion starts at the full AR span, or at cond when that is later,
// with pre-sample residuals set to zero. A missing y_t is replaced by its
// prediction and contributes a zero residual.
func runCSS(y []float64, mu float64, ex expanded, diff []float64, cond int) *cssState {
	m := len(y)
	dlen := len(diff) - 1
	r := max(len(ex.ar), cond)
	nw := max(m-dlen, 0)

	st := &cssState{
		yFilled:  append([]float64(nil), y...),
		z:        make([]float64, nw),
		e:        make([]float64, nw),
		observed: make([]bool, nw),
	}
	yf := st.yFilled

	// gaps inside the differencing window carry the last observation
	last := yf[0]
	for t := 0; t < dlen && t < m; t++ {
		if math.IsNaN(yf[t]) {
			yf[t] = last
		} else {
			last = yf[t]
		}
	}

	// lagged returns sum_{k>=1} diff[k] y_{t-k}
	lagged := func(t int) float64 {
		s := 0.0
		for k := 1; k <= dlen; k++ {
			s += diff[k] * yf[t-k]
		}
		return s
	}

	for i := 0; i < nw; i++ {
		t := i + dlen
		missing := math.IsNaN(y[t])
		if !missing {
			st.z[i] = yf[t] + lagged(t) - mu
		}

		if i < r {
			if missing {
				st.z[i] = 0
				yf[t] = mu - lagged(t)
			}
			continue
		}

		pred := 0.0
		for k, a := range ex.ar {
			pred += a * st.z[i-k-1]
		}
		for j, b := range ex.ma {
			if i-j-1 < 0 {
				break
			}
			pred += b * st.e[i-j-1]
		}

		if missing {
			st.z[i] = pred
			yf[t] = pred + mu - lagged(t)
			continue
		}

		st.e[i] = st.z[i] - pred
		st.sse += st.e[i] * st.e[i]
		st.nObs++
		st.observed[i] = true
	}

	return st
}

// forecast extends a CSS pass h steps past the end of the series.
// Future innovations are zero.
func (st *cssState) forecast(mu float64, ex expanded, diff []float64, h int) []float64 {
	m := len(st.yFilled)
	dlen := len(diff) - 1
	nw := len(st.z)

	y := make([]float64, m+h)
	copy(y, st.yFilled)
	z := make([]float64, nw+h)
	copy(z, st.z)
	e := make([]float64, nw+h)
	copy(e, st.e)

	for i := nw; i < nw+h; i++ {
		pred := 0.0
		for k, a := range ex.ar {
			if i-k-1 < 0 {
				break
			}
			pred += a * z[i-k-1]
		}
		for j, b := range ex.ma {
			if i-j-1 < 0 {
				break
			}
			pred += b * e[i-j-1]
		}
		z[i] = pred

		t := i + dlen
		v := pred + mu
		for k := 1; k <= dlen; k++ {
			v -= diff[k] * y[t-k]
		}
		y[t] = v
	}

	return y[m:]
}

// differenced applies diff to y. Missing values propagate.
func differenced(y, diff []float64) []float64 {
	dlen := len(diff) - 1
	if len(y) <= dlen {
		return nil
	}
	w := make([]float64, len(y)-dlen)
	for i := range w {
		t := i + dlen
		v := 0.0
		for k, c := range diff {
			v += c * y[t-k]
		}
		w[i] = v
	}
	return w
}

func countValid(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// startParams seeds mu with the mean of the differenced series and the AR
// part with Yule-Walker estimates. Everything else starts at zero.
func startParams(w []float64, l lags) *Params {
	p := &Params{
		AR:  make([]float64, l.order.P),
		MA:  make([]float64, l.order.Q),
		SAR: make([]float64, l.seasonal.P),
		SMA: make([]float64, l.seasonal.Q),
	}

	series := timeseries.New(w)
	if l.intercept {
		p.Mu = series.Mean()
	}
	if l.order.P > 0 {
		if acf := stats.ACF(series, l.order.P); acf != nil && len(acf) > l.order.P {
			if phi := yuleWalker(acf, l.order.P); phi != nil {
				copy(p.AR, phi)
			}
		}
	}
	return p
}

// yuleWalker estimates AR coefficients from autocorrelations with the
// Levinson-Durbin recursion. Returns nil if the recursion breaks down.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	v := 1 - phi[0]*phi[0]

	for i := 1; i < order; i++ {
		if v <= 0 {
			return nil
		}
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		next := make([]float64, i+1)
		for j := 0; j < i; j++ {
			next[j] = phi[j] - lambda*phi[i-1-j]
		}
		next[i] = lambda
		copy(phi, next)

		v *= 1 - lambda*lambda
	}

	return phi
}

// cssObjective returns 0.5*log(SSE/n) as a function of the unconstrained
// parameter vector.
func cssObjective(y []float64, l lags, diff []float64) func(x []float64) float64 {
	return func(x []float64) float64 {
		p := unpackParams(x, l)
		st := runCSS(y, p.Mu, expand(p, l.seasonal.S), diff, l.condSpan())
		if st.nObs == 0 {
			return math.Inf(1)
		}
		return 0.5 * math.Log(math.Max(st.sse/float64(st.nObs), minVariance))
	}
}

// minimize runs BFGS with a central-difference gradient and falls back to
// Nelder-Mead when the line search gives up or the result is not finite.
func minimize(f func([]float64) float64, x0 []float64, maxIter int) ([]float64, error) {
	best := append([]float64(nil), x0...)
	bestF := f(x0)

	problem := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-6,
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if res != nil && isFinite(res.F) && res.F <= bestF {
		best, bestF = append(best[:0], res.X...), res.F
	}

	if err != nil || res == nil || !isFinite(res.F) {
		nmSettings := &optimize.Settings{MajorIterations: 5 * maxIter * max(len(x0), 1)}
		nm, nmErr := optimize.Minimize(optimize.Problem{Func: f}, best, nmSettings, &optimize.NelderMead{})
		if nm != nil && isFinite(nm.F) && nm.F < bestF {
			best, bestF = append(best[:0], nm.X...), nm.F
		}
		if err == nil {
			err = nmErr
		}
	}

	if !isFinite(bestF) {
		if err != nil {
			return nil, errors.Wrap(err, "optimizer did not reach a finite objective")
		}
		return nil, errors.New("optimizer did not reach a finite objective")
	}
	return best, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
