// Package control supplies open-loop control-input producers for the
// simulation driver. Closed-loop control law design is out of scope; the
// driver accepts any dynamo.Controller.
package control

import (
	"fmt"
	"math"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/quad"
)

// Channel identifies one axis of the high-level command.
type Channel int

const (
	Climb Channel = iota
	Pitch
	Roll
	Yaw
)

func (c Channel) String() string {
	switch c {
	case Climb:
		return "climb"
	case Pitch:
		return "pitch"
	case Roll:
		return "roll"
	case Yaw:
		return "yaw"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

func ParseChannel(s string) (Channel, error) {
	switch s {
	case "climb":
		return Climb, nil
	case "pitch":
		return Pitch, nil
	case "roll":
		return Roll, nil
	case "yaw":
		return Yaw, nil
	}
	return 0, fmt.Errorf("control: unknown channel %q", s)
}

// Command is the high-level stick command mixed down to the four
// propellers.
type Command struct {
	Climb float64
	Pitch float64
	Roll  float64
	Yaw   float64
}

// Rule holds Channel at Value while From <= t < To. Later rules override
// earlier ones on the same channel, so a schedule reads top to bottom like
// a flight card.
type Rule struct {
	Channel Channel
	From    float64
	To      float64 // exclusive; +Inf for open-ended
	Value   float64
}

func (r Rule) Validate() error {
	if r.To <= r.From {
		return fmt.Errorf("control: rule window [%g, %g) is empty", r.From, r.To)
	}
	return nil
}

// Scripted is a piecewise-constant open-loop schedule: a pure function of
// time evaluated against an explicit rule list, plus a trim speed that
// keeps the vehicle near hover when every channel is zero.
type Scripted struct {
	Trim  float64 // RPM
	Rules []Rule
}

func NewScripted(trim float64, rules []Rule) (*Scripted, error) {
	if trim < 0 {
		return nil, fmt.Errorf("control: trim must be nonnegative, got %g", trim)
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return &Scripted{Trim: trim, Rules: rules}, nil
}

func (s *Scripted) Command(t float64) Command {
	var cmd Command
	for _, r := range s.Rules {
		if t < r.From || t >= r.To {
			continue
		}
		switch r.Channel {
		case Climb:
			cmd.Climb = r.Value
		case Pitch:
			cmd.Pitch = r.Value
		case Roll:
			cmd.Roll = r.Value
		case Yaw:
			cmd.Yaw = r.Value
		}
	}
	return cmd
}

func (s *Scripted) Compute(x dynamo.State, t float64) dynamo.Control {
	return Mix(s.Trim, s.Command(t))
}

// Mix maps a stick command onto the four propeller speeds. Propeller
// numbering matches the quadrant assignment in the dynamics: 1 front-right,
// 2 rear-left, 3 front-left, 4 rear-right. Commanded speeds are clamped at
// zero; a propeller cannot be driven backwards.
func Mix(trim float64, c Command) dynamo.Control {
	u := dynamo.Control{
		trim + (c.Pitch+c.Roll+c.Climb-c.Yaw)/4,
		trim + (-c.Pitch-c.Roll+c.Climb-c.Yaw)/4,
		trim + (c.Pitch-c.Roll+c.Climb+c.Yaw)/4,
		trim + (-c.Pitch+c.Roll+c.Climb+c.Yaw)/4,
	}
	for i := range u {
		u[i] = math.Max(0, u[i])
	}
	return u
}

// DefaultRules reproduces the reference test flight: climb until t=11s,
// pitch doublets around t=8-10s and t=12-14s, then reduced lift from
// t=16s on.
func DefaultRules() []Rule {
	inf := math.Inf(1)
	return []Rule{
		{Channel: Climb, From: 0, To: 11, Value: 500},
		{Channel: Pitch, From: 8, To: 9, Value: -10},
		{Channel: Pitch, From: 9, To: 10, Value: 10},
		{Channel: Pitch, From: 12, To: 13, Value: 15},
		{Channel: Pitch, From: 13, To: 14, Value: -15},
		{Channel: Climb, From: 16, To: inf, Value: 150},
	}
}

// DefaultTrim is the reference trim speed for a level hover.
const DefaultTrim = 3200

// None commands zero speed on every propeller (free fall).
type None struct{}

func NewNone() *None { return &None{} }

func (n *None) Compute(x dynamo.State, t float64) dynamo.Control {
	return make(dynamo.Control, quad.ControlDim)
}

// Constant commands the same fixed speed on every propeller.
type Constant struct {
	RPM float64
}

func NewConstant(rpm float64) *Constant { return &Constant{RPM: rpm} }

func (c *Constant) Compute(x dynamo.State, t float64) dynamo.Control {
	u := make(dynamo.Control, quad.ControlDim)
	for i := range u {
		u[i] = c.RPM
	}
	return u
}
