package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/davidglickman/drone-6-dof/internal/control"
	"github.com/davidglickman/drone-6-dof/internal/quad"
	"github.com/davidglickman/drone-6-dof/internal/sensors"
	"github.com/davidglickman/drone-6-dof/internal/sim"
)

const (
	DefaultDt            = 0.02
	DefaultDuration      = 30.0
	DefaultPitchGuardDeg = 85.0
)

type Config struct {
	Integrator string          `yaml:"integrator"`
	Sim        SimConfig       `yaml:"sim"`
	Vehicle    VehicleConfig   `yaml:"vehicle"`
	Propeller  PropellerConfig `yaml:"propeller"`
	Sensors    SensorsConfig   `yaml:"sensors"`
	Schedule   ScheduleConfig  `yaml:"schedule"`
	InitState  InitStateConfig `yaml:"init_state"`
}

type SimConfig struct {
	Dt            float64 `yaml:"dt"`
	Duration      float64 `yaml:"duration"`
	Seed          int64   `yaml:"seed"`
	PitchGuardDeg float64 `yaml:"pitch_guard_deg"`
}

type VehicleConfig struct {
	Mass    float64 `yaml:"mass"`
	Ixx     float64 `yaml:"ixx"`
	Iyy     float64 `yaml:"iyy"`
	Izz     float64 `yaml:"izz"`
	ArmX    float64 `yaml:"arm_x"`
	ArmY    float64 `yaml:"arm_y"`
	Gravity float64 `yaml:"gravity"`
}

type PropellerConfig struct {
	Radius     float64 `yaml:"radius"`
	Blades     int     `yaml:"blades"`
	Chord      float64 `yaml:"chord"`
	LiftSlope  float64 `yaml:"lift_slope"`
	Efficiency float64 `yaml:"efficiency"`
	DiameterIn float64 `yaml:"diameter_in"`
	PitchIn    float64 `yaml:"pitch_in"`
	AirDensity float64 `yaml:"air_density"`
}

type SensorsConfig struct {
	Enabled          bool       `yaml:"enabled"`
	GyroSigma        float64    `yaml:"gyro_sigma"`
	GyroBias         [3]float64 `yaml:"gyro_bias"`
	AccelSigma       float64    `yaml:"accel_sigma"`
	AccelBias        [3]float64 `yaml:"accel_bias"`
	MagMagnitude     float64    `yaml:"mag_magnitude"`
	SeaLevelPressure float64    `yaml:"sea_level_pressure"`
	Temperature      float64    `yaml:"temperature"`
	Launch           LaunchConfig `yaml:"launch"`
}

type LaunchConfig struct {
	Easting    float64 `yaml:"easting"`
	Northing   float64 `yaml:"northing"`
	Zone       int     `yaml:"zone"`
	ZoneLetter string  `yaml:"zone_letter"`
	Altitude   float64 `yaml:"altitude"`
}

type ScheduleConfig struct {
	TrimRPM float64      `yaml:"trim_rpm"`
	Rules   []RuleConfig `yaml:"rules"`
}

type RuleConfig struct {
	Channel string  `yaml:"channel"`
	From    float64 `yaml:"from"`
	To      float64 `yaml:"to"` // <= 0 means open-ended
	Value   float64 `yaml:"value"`
}

type InitStateConfig struct {
	Height float64 `yaml:"height"`
	U      float64 `yaml:"u"`
	V      float64 `yaml:"v"`
	W      float64 `yaml:"w"`
	Phi    float64 `yaml:"phi"`
	Theta  float64 `yaml:"theta"`
	Psi    float64 `yaml:"psi"`
}

func DefaultConfig() *Config {
	v := quad.DefaultVehicle()
	g := quad.DefaultProp()
	s := sensors.DefaultParams()
	return &Config{
		Integrator: "rk4",
		Sim: SimConfig{
			Dt:            DefaultDt,
			Duration:      DefaultDuration,
			PitchGuardDeg: DefaultPitchGuardDeg,
		},
		Vehicle: VehicleConfig{
			Mass:    v.Mass,
			Ixx:     v.Ixx,
			Iyy:     v.Iyy,
			Izz:     v.Izz,
			ArmX:    v.ArmX,
			ArmY:    v.ArmY,
			Gravity: v.Gravity,
		},
		Propeller: PropellerConfig{
			Radius:     g.Radius,
			Blades:     g.Blades,
			Chord:      g.Chord,
			LiftSlope:  g.LiftSlope,
			Efficiency: g.Efficiency,
			DiameterIn: g.DiameterIn,
			PitchIn:    g.PitchIn,
			AirDensity: g.AirDensity,
		},
		Sensors: SensorsConfig{
			Enabled:          true,
			GyroSigma:        s.Gyro.Sigma,
			GyroBias:         s.Gyro.Bias,
			AccelSigma:       s.Accel.Sigma,
			AccelBias:        s.Accel.Bias,
			MagMagnitude:     s.MagMagnitude,
			SeaLevelPressure: s.SeaLevelPressure,
			Temperature:      s.Temperature,
			Launch: LaunchConfig{
				Easting:    s.Launch.Easting,
				Northing:   s.Launch.Northing,
				Zone:       s.Launch.Zone,
				ZoneLetter: s.Launch.ZoneLetter,
				Altitude:   s.Launch.Altitude,
			},
		},
		Schedule: ScheduleConfig{
			TrimRPM: control.DefaultTrim,
			Rules:   rulesToConfig(control.DefaultRules()),
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Sim.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %g", c.Sim.Dt)
	}
	if c.Sim.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Sim.Duration)
	}
	switch c.Integrator {
	case "rk4", "euler":
	default:
		return fmt.Errorf("config: unknown integrator %q", c.Integrator)
	}
	if err := c.VehicleParams().Validate(); err != nil {
		return err
	}
	if err := c.PropGeometry().Validate(); err != nil {
		return err
	}
	if c.Sensors.Enabled {
		if err := c.SensorParams().Validate(); err != nil {
			return err
		}
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

func (c *Config) VehicleParams() quad.VehicleParams {
	return quad.VehicleParams{
		Mass:    c.Vehicle.Mass,
		Ixx:     c.Vehicle.Ixx,
		Iyy:     c.Vehicle.Iyy,
		Izz:     c.Vehicle.Izz,
		ArmX:    c.Vehicle.ArmX,
		ArmY:    c.Vehicle.ArmY,
		Gravity: c.Vehicle.Gravity,
	}
}

func (c *Config) PropGeometry() quad.PropGeometry {
	return quad.PropGeometry{
		Radius:     c.Propeller.Radius,
		Blades:     c.Propeller.Blades,
		Chord:      c.Propeller.Chord,
		LiftSlope:  c.Propeller.LiftSlope,
		Efficiency: c.Propeller.Efficiency,
		DiameterIn: c.Propeller.DiameterIn,
		PitchIn:    c.Propeller.PitchIn,
		AirDensity: c.Propeller.AirDensity,
	}
}

func (c *Config) SensorParams() sensors.Params {
	p := sensors.DefaultParams()
	p.Gyro = sensors.NoiseParams{Sigma: c.Sensors.GyroSigma, Bias: c.Sensors.GyroBias}
	p.Accel = sensors.NoiseParams{Sigma: c.Sensors.AccelSigma, Bias: c.Sensors.AccelBias}
	p.MagMagnitude = c.Sensors.MagMagnitude
	p.SeaLevelPressure = c.Sensors.SeaLevelPressure
	p.Temperature = c.Sensors.Temperature
	p.Launch = sensors.LaunchRef{
		Easting:    c.Sensors.Launch.Easting,
		Northing:   c.Sensors.Launch.Northing,
		Zone:       c.Sensors.Launch.Zone,
		ZoneLetter: c.Sensors.Launch.ZoneLetter,
		Altitude:   c.Sensors.Launch.Altitude,
	}
	return p
}

func (c *Config) Rules() ([]control.Rule, error) {
	rules := make([]control.Rule, 0, len(c.Schedule.Rules))
	for i, rc := range c.Schedule.Rules {
		ch, err := control.ParseChannel(rc.Channel)
		if err != nil {
			return nil, fmt.Errorf("config: rule %d: %w", i, err)
		}
		to := rc.To
		if to <= 0 {
			to = math.Inf(1)
		}
		r := control.Rule{Channel: ch, From: rc.From, To: to, Value: rc.Value}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("config: rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (c *Config) SimSettings() sim.Config {
	return sim.Config{
		Dt:            c.Sim.Dt,
		Duration:      c.Sim.Duration,
		Seed:          c.Sim.Seed,
		ValidateState: true,
		PitchGuard:    c.Sim.PitchGuardDeg * math.Pi / 180,
	}
}

// InitState builds the 12-state vector from the launch condition.
func (c *Config) GetInitState() []float64 {
	x := make([]float64, quad.StateDim)
	x[quad.StateU] = c.InitState.U
	x[quad.StateV] = c.InitState.V
	x[quad.StateW] = c.InitState.W
	x[quad.StatePhi] = c.InitState.Phi
	x[quad.StateTheta] = c.InitState.Theta
	x[quad.StatePsi] = c.InitState.Psi
	x[quad.StateH] = c.InitState.Height
	return x
}

func rulesToConfig(rules []control.Rule) []RuleConfig {
	out := make([]RuleConfig, 0, len(rules))
	for _, r := range rules {
		to := r.To
		if math.IsInf(to, 1) {
			to = 0
		}
		out = append(out, RuleConfig{
			Channel: r.Channel.String(),
			From:    r.From,
			To:      to,
			Value:   r.Value,
		})
	}
	return out
}
