// Package solve implements a safeguarded scalar nonlinear-equation solver
// used by the propeller thrust model.
package solve

import (
	"errors"
	"math"
)

var (
	// ErrNoConvergence indicates the residual did not reach tolerance
	// within the iteration budget.
	ErrNoConvergence = errors.New("solve: no convergence within iteration budget")

	// ErrNoBracket indicates no sign change could be found around the
	// initial guess for the bisection fallback.
	ErrNoBracket = errors.New("solve: no sign change bracketing a root")
)

// Options controls the iteration budget of Scalar.
type Options struct {
	Guess   float64 // initial iterate
	Tol     float64 // residual tolerance |f(x)| <= Tol
	MaxIter int     // iteration cap, per phase
}

func DefaultOptions() Options {
	return Options{
		Guess:   0.1,
		Tol:     1e-9,
		MaxIter: 60,
	}
}

// Scalar finds x such that |f(x)| <= opt.Tol, starting from opt.Guess.
// It runs Newton iteration with a central-difference derivative and falls
// back to bracketed bisection when Newton stalls. The iteration count is
// bounded in both phases; failure to converge is returned as an error,
// never as a silent approximate result.
func Scalar(f func(float64) float64, opt Options) (float64, error) {
	if opt.MaxIter <= 0 || opt.Tol <= 0 {
		return 0, ErrNoConvergence
	}

	x := opt.Guess
	for i := 0; i < opt.MaxIter; i++ {
		fx := f(x)
		if math.Abs(fx) <= opt.Tol {
			return x, nil
		}

		h := 1e-7 * math.Max(1, math.Abs(x))
		d := (f(x+h) - f(x-h)) / (2 * h)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}

		step := fx / d
		// A wild Newton step means the local model is useless; bisect instead.
		if math.Abs(step) > 1e6*math.Max(1, math.Abs(x)) {
			break
		}
		x -= step
		if math.IsNaN(x) || math.IsInf(x, 0) {
			break
		}
	}

	if fx := f(x); math.Abs(fx) <= opt.Tol {
		return x, nil
	}
	return bisect(f, opt)
}

// bisect grows a bracket around the guess by doubling, then bisects.
func bisect(f func(float64) float64, opt Options) (float64, error) {
	lo, hi, err := bracket(f, opt.Guess)
	if err != nil {
		return 0, err
	}

	flo := f(lo)
	for i := 0; i < 4*opt.MaxIter; i++ {
		mid := 0.5 * (lo + hi)
		fmid := f(mid)
		if math.Abs(fmid) <= opt.Tol || hi-lo <= 1e-15*math.Max(1, math.Abs(mid)) {
			if math.Abs(fmid) <= opt.Tol {
				return mid, nil
			}
			return 0, ErrNoConvergence
		}
		if (flo < 0) == (fmid < 0) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}
	return 0, ErrNoConvergence
}

func bracket(f func(float64) float64, x0 float64) (lo, hi float64, err error) {
	delta := math.Max(1e-3, 1e-3*math.Abs(x0))
	for i := 0; i < 64; i++ {
		lo, hi = x0-delta, x0+delta
		if (f(lo) < 0) != (f(hi) < 0) {
			return lo, hi, nil
		}
		delta *= 2
	}
	return 0, 0, ErrNoBracket
}
