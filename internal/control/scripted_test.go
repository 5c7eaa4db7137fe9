package control

import (
	"math"
	"testing"

	"github.com/davidglickman/drone-6-dof/internal/dynamo"
)

func TestParseChannel(t *testing.T) {
	for _, name := range []string{"climb", "pitch", "roll", "yaw"} {
		ch, err := ParseChannel(name)
		if err != nil {
			t.Errorf("parse %q: %v", name, err)
		}
		if ch.String() != name {
			t.Errorf("round trip %q -> %q", name, ch.String())
		}
	}

	if _, err := ParseChannel("thrust"); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestRuleValidate(t *testing.T) {
	if err := (Rule{Channel: Climb, From: 2, To: 1, Value: 100}).Validate(); err == nil {
		t.Error("expected error for inverted window")
	}
	if err := (Rule{Channel: Climb, From: 0, To: math.Inf(1), Value: 100}).Validate(); err != nil {
		t.Errorf("open-ended rule should validate: %v", err)
	}
}

func TestNewScriptedRejectsBadInput(t *testing.T) {
	if _, err := NewScripted(-1, nil); err == nil {
		t.Error("expected error for negative trim")
	}
	if _, err := NewScripted(3200, []Rule{{Channel: Pitch, From: 5, To: 5, Value: 1}}); err == nil {
		t.Error("expected error for empty window")
	}
}

func TestDefaultScheduleWindows(t *testing.T) {
	s, err := NewScripted(DefaultTrim, DefaultRules())
	if err != nil {
		t.Fatalf("new scripted: %v", err)
	}

	tests := []struct {
		t    float64
		want Command
	}{
		{0, Command{Climb: 500}},
		{7.9, Command{Climb: 500}},
		{8.5, Command{Climb: 500, Pitch: -10}},
		{9.5, Command{Climb: 500, Pitch: 10}},
		{10.5, Command{Climb: 500}},
		{11.5, Command{}},
		{12.5, Command{Pitch: 15}},
		{13.5, Command{Pitch: -15}},
		{15.0, Command{}},
		{16.0, Command{Climb: 150}},
		{250.0, Command{Climb: 150}},
	}

	for _, tt := range tests {
		if got := s.Command(tt.t); got != tt.want {
			t.Errorf("t=%.1f: got %+v, want %+v", tt.t, got, tt.want)
		}
	}
}

func TestLaterRuleOverrides(t *testing.T) {
	s, err := NewScripted(DefaultTrim, []Rule{
		{Channel: Climb, From: 0, To: 10, Value: 500},
		{Channel: Climb, From: 5, To: 10, Value: 200},
	})
	if err != nil {
		t.Fatalf("new scripted: %v", err)
	}

	if got := s.Command(3).Climb; got != 500 {
		t.Errorf("t=3: climb %v, want 500", got)
	}
	if got := s.Command(7).Climb; got != 200 {
		t.Errorf("t=7: climb %v, want 200 (later rule wins)", got)
	}
}

func TestMix(t *testing.T) {
	u := Mix(3200, Command{Climb: 400})
	for i, rpm := range u {
		if rpm != 3300 {
			t.Errorf("prop %d: %v, want 3300", i+1, rpm)
		}
	}

	u = Mix(3200, Command{Pitch: 40})
	want := dynamo.Control{3210, 3190, 3210, 3190}
	for i := range u {
		if u[i] != want[i] {
			t.Errorf("pitch mix prop %d: %v, want %v", i+1, u[i], want[i])
		}
	}

	u = Mix(3200, Command{Roll: 40})
	want = dynamo.Control{3210, 3190, 3190, 3210}
	for i := range u {
		if u[i] != want[i] {
			t.Errorf("roll mix prop %d: %v, want %v", i+1, u[i], want[i])
		}
	}

	u = Mix(3200, Command{Yaw: 40})
	want = dynamo.Control{3190, 3190, 3210, 3210}
	for i := range u {
		if u[i] != want[i] {
			t.Errorf("yaw mix prop %d: %v, want %v", i+1, u[i], want[i])
		}
	}
}

func TestMixClampsAtZero(t *testing.T) {
	u := Mix(0, Command{Pitch: -40})
	for i, rpm := range u {
		if rpm < 0 {
			t.Errorf("prop %d commanded backwards: %v", i+1, rpm)
		}
	}
}

func TestNoneAndConstant(t *testing.T) {
	x := make(dynamo.State, 12)

	u := NewNone().Compute(x, 0)
	for i, rpm := range u {
		if rpm != 0 {
			t.Errorf("none controller prop %d: %v", i+1, rpm)
		}
	}

	u = NewConstant(2500).Compute(x, 0)
	for i, rpm := range u {
		if rpm != 2500 {
			t.Errorf("constant controller prop %d: %v", i+1, rpm)
		}
	}
}
