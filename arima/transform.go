package arima

import "math"

// maxPartial keeps partial autocorrelations away from the unit circle when
// mapping back to the unconstrained space.
const maxPartial = 0.99

// arTransform maps unconstrained values to the coefficients of a stationary
// AR polynomial (Jones, 1980). Each value becomes a partial
// autocorrelation through x/sqrt(1+x^2) and the Durbin-Levinson recursion
// turns the partials into coefficients.
func arTransform(x []float64) []float64 {
	p := len(x)
	phi := make([]float64, p)
	for i, v := range x {
		phi[i] = v / math.Sqrt(1+v*v)
	}

	tmp := make([]float64, p)
	for j := 1; j < p; j++ {
		a := phi[j]
		for k := 0; k < j; k++ {
			tmp[k] = phi[k] - a*phi[j-k-1]
		}
		copy(phi[:j], tmp[:j])
	}
	return phi
}

// arInverse is the inverse of arTransform. Coefficients of a
// non-stationary polynomial are pulled back inside the region.
func arInverse(phi []float64) []float64 {
	p := len(phi)
	partial := append([]float64(nil), phi...)

	tmp := make([]float64, p)
	for j := p - 1; j > 0; j-- {
		a := clampPartial(partial[j])
		partial[j] = a
		for k := 0; k < j; k++ {
			tmp[k] = (partial[k] + a*partial[j-k-1]) / (1 - a*a)
		}
		copy(partial[:j], tmp[:j])
	}

	x := make([]float64, p)
	for i, r := range partial {
		r = clampPartial(r)
		x[i] = r / math.Sqrt(1-r*r)
	}
	return x
}

// maTransform maps unconstrained values to invertible MA coefficients of
// 1 + sum theta_j B^j.
func maTransform(x []float64) []float64 {
	theta := arTransform(x)
	for i := range theta {
		theta[i] = -theta[i]
	}
	return theta
}

func maInverse(theta []float64) []float64 {
	neg := make([]float64, len(theta))
	for i, v := range theta {
		neg[i] = -v
	}
	return arInverse(neg)
}

func clampPartial(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(-maxPartial, math.Min(maxPartial, r))
}

// packParams flattens a parameter set into the unconstrained optimizer
// vector: mu, AR, MA, SAR, SMA.
func packParams(p *Params, l lags) []float64 {
	x := make([]float64, 0, l.nFree())
	if l.intercept {
		x = append(x, p.Mu)
	}
	x = append(x, arInverse(p.AR)...)
	x = append(x, maInverse(p.MA)...)
	x = append(x, arInverse(p.SAR)...)
	x = append(x, maInverse(p.SMA)...)
	return x
}

// unpackParams is the inverse of packParams. Sigma2 is left at zero.
func unpackParams(x []float64, l lags) *Params {
	p := &Params{}
	i := 0
	if l.intercept {
		p.Mu = x[0]
		i++
	}
	next := func(n int) []float64 {
		v := x[i : i+n]
		i += n
		return v
	}
	p.AR = arTransform(next(l.order.P))
	p.MA = maTransform(next(l.order.Q))
	p.SAR = arTransform(next(l.seasonal.P))
	p.SMA = maTransform(next(l.seasonal.Q))
	return p
}
