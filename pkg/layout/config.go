package layout

import "time"

// Config holds the simulation tuning. The zero value is not useful; start
// from DefaultConfig.
type Config struct {
	Width  float64 `toml:"width" yaml:"width"`
	Height float64 `toml:"height" yaml:"height"`

	// Link springs.
	RootLinkDistance float64 `toml:"root_link_distance" yaml:"root_link_distance"`
	LinkDistance     float64 `toml:"link_distance" yaml:"link_distance"`
	LinkStrength     float64 `toml:"link_strength" yaml:"link_strength"`

	// Many-body.
	ChargeStrength float64 `toml:"charge_strength" yaml:"charge_strength"`
	DistanceMin    float64 `toml:"distance_min" yaml:"distance_min"`

	// Centering.
	CenterStrength float64 `toml:"center_strength" yaml:"center_strength"`

	// Collision.
	CollidePadding    float64 `toml:"collide_padding" yaml:"collide_padding"`
	CollideIterations int     `toml:"collide_iterations" yaml:"collide_iterations"`

	// Cooling.
	AlphaMin        float64 `toml:"alpha_min" yaml:"alpha_min"`
	AlphaDecay      float64 `toml:"alpha_decay" yaml:"alpha_decay"`
	VelocityDecay   float64 `toml:"velocity_decay" yaml:"velocity_decay"`
	ReheatAlpha     float64 `toml:"reheat_alpha" yaml:"reheat_alpha"`
	DragAlphaTarget float64 `toml:"drag_alpha_target" yaml:"drag_alpha_target"`

	// SpawnJitter is the width of the square around its parent a new body
	// spawns in.
	SpawnJitter float64 `toml:"spawn_jitter" yaml:"spawn_jitter"`

	// TickInterval is the period of the background loop.
	TickInterval time.Duration `toml:"tick_interval" yaml:"tick_interval"`

	// Seed makes spawn jitter and overlap jiggle reproducible.
	Seed uint64 `toml:"seed" yaml:"seed"`
}

// DefaultConfig returns the tuning of the interactive view.
func DefaultConfig() Config {
	return Config{
		Width:             960,
		Height:            720,
		RootLinkDistance:  120,
		LinkDistance:      80,
		LinkStrength:      0.6,
		ChargeStrength:    -350,
		DistanceMin:       1,
		CenterStrength:    0.03,
		CollidePadding:    10,
		CollideIterations: 2,
		AlphaMin:          0.001,
		AlphaDecay:        0.05,
		VelocityDecay:     0.4,
		ReheatAlpha:       0.3,
		DragAlphaTarget:   0.1,
		SpawnJitter:       30,
		TickInterval:      16 * time.Millisecond,
		Seed:              1,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.RootLinkDistance <= 0 {
		c.RootLinkDistance = d.RootLinkDistance
	}
	if c.LinkDistance <= 0 {
		c.LinkDistance = d.LinkDistance
	}
	if c.LinkStrength <= 0 {
		c.LinkStrength = d.LinkStrength
	}
	if c.ChargeStrength == 0 {
		c.ChargeStrength = d.ChargeStrength
	}
	if c.DistanceMin <= 0 {
		c.DistanceMin = d.DistanceMin
	}
	if c.CenterStrength <= 0 {
		c.CenterStrength = d.CenterStrength
	}
	if c.CollidePadding < 0 {
		c.CollidePadding = d.CollidePadding
	}
	if c.CollideIterations <= 0 {
		c.CollideIterations = d.CollideIterations
	}
	if c.AlphaMin <= 0 {
		c.AlphaMin = d.AlphaMin
	}
	if c.AlphaDecay <= 0 || c.AlphaDecay >= 1 {
		c.AlphaDecay = d.AlphaDecay
	}
	if c.VelocityDecay <= 0 || c.VelocityDecay >= 1 {
		c.VelocityDecay = d.VelocityDecay
	}
	if c.ReheatAlpha <= 0 {
		c.ReheatAlpha = d.ReheatAlpha
	}
	if c.DragAlphaTarget <= 0 {
		c.DragAlphaTarget = d.DragAlphaTarget
	}
	if c.SpawnJitter <= 0 {
		c.SpawnJitter = d.SpawnJitter
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	return c
}
