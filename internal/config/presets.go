package config

var presets = map[string]func() *Config{
	"hover": func() *Config {
		cfg := DefaultConfig()
		cfg.Schedule.Rules = nil
		return cfg
	},
	"maneuver": func() *Config {
		// The default schedule already carries the full test flight:
		// climb, pitch doublets, then reduced lift.
		return DefaultConfig()
	},
	"freefall": func() *Config {
		cfg := DefaultConfig()
		cfg.Sim.Duration = 5.0
		cfg.Schedule.TrimRPM = 0
		cfg.Schedule.Rules = nil
		cfg.InitState.Height = 50
		return cfg
	},
	"drift": func() *Config {
		cfg := DefaultConfig()
		cfg.Sim.Duration = 20.0
		cfg.Schedule.Rules = []RuleConfig{
			{Channel: "climb", From: 0, To: 10, Value: 400},
			{Channel: "roll", From: 4, To: 6, Value: 12},
			{Channel: "roll", From: 6, To: 8, Value: -12},
		}
		return cfg
	},
}

func GetPreset(name string) *Config {
	build, ok := presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
