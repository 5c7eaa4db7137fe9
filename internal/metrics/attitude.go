package metrics

import (
	"math"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/quad"
)

// PitchMargin reports how much of the usable pitch envelope remained over
// the run: 1 at level flight, 0 when |theta| touched the 90 deg
// attitude-rate singularity.
type PitchMargin struct {
	maxAbs float64
}

func NewPitchMargin() *PitchMargin {
	return &PitchMargin{}
}

func (p *PitchMargin) Name() string { return "pitch_margin" }

func (p *PitchMargin) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) <= quad.StateTheta {
		return
	}
	if abs := math.Abs(x[quad.StateTheta]); abs > p.maxAbs {
		p.maxAbs = abs
	}
}

func (p *PitchMargin) Value() float64 {
	return math.Max(0, 1-p.maxAbs/(math.Pi/2))
}

func (p *PitchMargin) Reset() {
	p.maxAbs = 0
}

// ClimbRate reports the mean height rate over the run.
type ClimbRate struct {
	firstT, firstH float64
	lastT, lastH   float64
	samples        int
}

func NewClimbRate() *ClimbRate {
	return &ClimbRate{}
}

func (c *ClimbRate) Name() string { return "mean_climb_rate" }

func (c *ClimbRate) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) <= quad.StateH {
		return
	}
	if c.samples == 0 {
		c.firstT, c.firstH = t, x[quad.StateH]
	}
	c.lastT, c.lastH = t, x[quad.StateH]
	c.samples++
}

func (c *ClimbRate) Value() float64 {
	if c.samples < 2 || c.lastT == c.firstT {
		return 0
	}
	return (c.lastH - c.firstH) / (c.lastT - c.firstT)
}

func (c *ClimbRate) Reset() {
	c.samples = 0
	c.firstT, c.firstH, c.lastT, c.lastH = 0, 0, 0, 0
}
