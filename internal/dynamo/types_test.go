package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestStateClone(t *testing.T) {
	s := State{1, 2, 3}
	c := s.Clone()

	c[0] = 99
	if s[0] != 1 {
		t.Error("clone should not share backing storage")
	}
}

func TestStateIsValid(t *testing.T) {
	if !(State{1, -2, 0}).IsValid() {
		t.Error("finite state should be valid")
	}
	if (State{1, math.NaN()}).IsValid() {
		t.Error("NaN state should be invalid")
	}
	if (State{math.Inf(1)}).IsValid() {
		t.Error("Inf state should be invalid")
	}
	if !(State{}).IsValid() {
		t.Error("empty state is trivially valid")
	}
}

func TestStateNorm(t *testing.T) {
	if got := (State{3, 4}).Norm(); math.Abs(got-5) > 1e-15 {
		t.Errorf("norm = %v, want 5", got)
	}
	if got := (State{}).Norm(); got != 0 {
		t.Errorf("empty norm = %v, want 0", got)
	}
}

func TestSimErrorUnwrap(t *testing.T) {
	inner := errors.New("thrust solve failed")
	err := &SimError{Step: 42, Time: 0.84, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("SimError should unwrap to the inner error")
	}
	if err.Error() == "" {
		t.Error("empty error message")
	}
}
