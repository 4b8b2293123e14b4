package arima

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Order is the non-seasonal order (p, d, q).
type Order struct {
	P int // AR order
	D int // Differencing order
	Q int // MA order
}

// SeasonalOrder is the seasonal order (P, D, Q) with period S.
// The zero value means no seasonal component.
type SeasonalOrder struct {
	P int // Seasonal AR order
	D int // Seasonal differencing order
	Q int // Seasonal MA order
	S int // Season length, e.g. 12 for monthly data
}

// IsZero reports whether the seasonal part is absent.
func (s SeasonalOrder) IsZero() bool {
	return s.P == 0 && s.D == 0 && s.Q == 0
}

// String renders the order as (p,d,q)(P,D,Q)[s]. The seasonal part is
// omitted when absent.
func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// String renders the seasonal order as (P,D,Q)[s].
func (s SeasonalOrder) String() string {
	return fmt.Sprintf("(%d,%d,%d)[%d]", s.P, s.D, s.Q, s.S)
}

// FormatOrder renders a full model order such as (1,1,1)(0,1,1)[12].
func FormatOrder(o Order, s SeasonalOrder) string {
	if s.IsZero() {
		return o.String()
	}
	return o.String() + s.String()
}

func validateOrder(o Order, s SeasonalOrder) error {
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return errors.Wrapf(ErrInvalidOrder, "negative order %s", o)
	}
	if s.P < 0 || s.D < 0 || s.Q < 0 || s.S < 0 {
		return errors.Wrapf(ErrInvalidOrder, "negative seasonal order %s", s)
	}
	if s.IsZero() {
		return nil
	}
	if s.S < 2 {
		return errors.Wrapf(ErrInvalidOrder, "seasonal order %s needs a period of at least 2", s)
	}
	return nil
}

// lags describes the lag structure shared by every series in a model.
type lags struct {
	order    Order
	seasonal SeasonalOrder
	// intercept reports whether mu is estimated.
	intercept bool
	// cond is the minimum number of conditioning residuals.
	cond int
}

// arSpan is the highest lag of the expanded AR polynomial.
func (l lags) arSpan() int {
	return l.order.P + l.seasonal.P*l.seasonal.S
}

// condSpan is the number of differenced observations that only
// condition the recursion.
func (l lags) condSpan() int {
	return max(l.arSpan(), l.cond)
}

// maSpan is the highest lag of the expanded MA polynomial.
func (l lags) maSpan() int {
	return l.order.Q + l.seasonal.Q*l.seasonal.S
}

// diffSpan is the number of observations consumed by differencing.
func (l lags) diffSpan() int {
	return l.order.D + l.seasonal.D*l.seasonal.S
}

// nParams counts estimated parameters, sigma2 included.
func (l lags) nParams() int {
	k := l.order.P + l.order.Q + l.seasonal.P + l.seasonal.Q + 1
	if l.intercept {
		k++
	}
	return k
}

// nFree counts the parameters searched by the optimizer.
func (l lags) nFree() int {
	return l.nParams() - 1
}
