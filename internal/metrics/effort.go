package metrics

import (
	"math"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
)

// ControlEffort reports the RMS magnitude of the commanded control vector
// over the run.
type ControlEffort struct {
	sumSq   float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	for _, val := range u {
		c.sumSq += val * val
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Sqrt(c.sumSq / float64(c.samples))
}

func (c *ControlEffort) Reset() {
	c.sumSq = 0
	c.samples = 0
}
