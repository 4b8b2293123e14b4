package arima

// Polynomials in the backshift operator B are stored as coefficient slices
// with c[0] the constant term.

// polyMul multiplies two polynomials.
func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// lagPoly builds 1 + sign*sum coeffs[i] B^((i+1)*step).
func lagPoly(coeffs []float64, step int, sign float64) []float64 {
	out := make([]float64, len(coeffs)*step+1)
	out[0] = 1
	for i, c := range coeffs {
		out[(i+1)*step] = sign * c
	}
	return out
}

// diffPoly returns (1-B)^d (1-B^s)^D.
func diffPoly(d, sd, s int) []float64 {
	out := []float64{1}
	for i := 0; i < d; i++ {
		out = polyMul(out, []float64{1, -1})
	}
	for i := 0; i < sd; i++ {
		out = polyMul(out, lagPoly([]float64{1}, s, -1))
	}
	return out
}

// expanded holds the multiplied-out lag polynomials of one parameter set,
// written as z_t = sum ar[i] z_{t-1-i} + e_t + sum ma[j] e_{t-1-j}.
type expanded struct {
	ar []float64
	ma []float64
}

func expand(p *Params, s int) expanded {
	// phi(B) Phi(B^s) = 1 - sum ar_i B^i
	arPoly := polyMul(lagPoly(p.AR, 1, -1), lagPoly(p.SAR, max(s, 1), -1))
	// theta(B) Theta(B^s) = 1 + sum ma_j B^j
	maPoly := polyMul(lagPoly(p.MA, 1, 1), lagPoly(p.SMA, max(s, 1), 1))

	ex := expanded{
		ar: make([]float64, len(arPoly)-1),
		ma: make([]float64, len(maPoly)-1),
	}
	for i := range ex.ar {
		ex.ar[i] = -arPoly[i+1]
	}
	copy(ex.ma, maPoly[1:])
	return ex
}

// psiWeights returns the first h MA(infinity) weights of the integrated
// model whose AR side is the stationary AR polynomial times the
// differencing polynomial.
func psiWeights(ex expanded, diff []float64, h int) []float64 {
	arPoly := make([]float64, len(ex.ar)+1)
	arPoly[0] = 1
	for i, a := range ex.ar {
		arPoly[i+1] = -a
	}
	full := polyMul(arPoly, diff)

	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j <= len(ex.ma) {
			v = ex.ma[j-1]
		}
		for i := 1; i < len(full) && i <= j; i++ {
			v -= full[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}
