package config

// RuntimeConfig is the subset of the configuration that may be changed
// through the web API. Hardware, transport and logging settings stay
// file-only.
type RuntimeConfig struct {
	Strip      StripConfig      `yaml:"Strip" json:"Strip"`
	NightLight NightLightConfig `yaml:"NightLight" json:"NightLight"`
}

func (c *Config) Runtime() RuntimeConfig {
	return RuntimeConfig{
		Strip:      c.Strip,
		NightLight: c.NightLight,
	}
}

// Merge replaces the runtime-safe sections of c with r.
func (c *Config) Merge(r RuntimeConfig) {
	c.Strip = r.Strip
	c.NightLight = r.NightLight
}
