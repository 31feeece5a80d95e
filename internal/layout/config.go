// Package layout implements the force-directed layout engine: an iterative
// simulation that owns per-node position and velocity for one active view,
// advances one tick per display frame and settles instead of drifting.
package layout

import (
	"math"
	"time"
)

// Config holds the engine's tunable constants. Zero fields take the
// defaults from DefaultConfig.
type Config struct {
	Width  float64
	Height float64

	NodeRadius      float64
	CollisionMargin float64

	// Link rest distance is clamp(Base - weight*PerWeight, Min, Max).
	LinkDistanceBase      float64
	LinkDistancePerWeight float64
	LinkDistanceMin       float64
	LinkDistanceMax       float64

	ChargeStrength  float64 // negative repels
	CenterStrength  float64
	ClusterStrength float64
	CollideStrength float64
	VelocityDecay   float64

	AlphaDecay      float64
	AlphaMin        float64
	DragAlphaTarget float64
	ReleaseAlphaCap float64
	SettleTimeout   time.Duration

	Seed int64
}

// DefaultConfig returns the engine defaults for an 800x600 surface.
func DefaultConfig() Config {
	return Config{
		Width:                 800,
		Height:                600,
		NodeRadius:            20,
		CollisionMargin:       6,
		LinkDistanceBase:      160,
		LinkDistancePerWeight: 15,
		LinkDistanceMin:       80,
		LinkDistanceMax:       200,
		ChargeStrength:        -300,
		CenterStrength:        1,
		ClusterStrength:       0.05,
		CollideStrength:       0.7,
		VelocityDecay:         0.4,
		AlphaDecay:            0.05,
		AlphaMin:              0.005,
		DragAlphaTarget:       0.3,
		ReleaseAlphaCap:       0.1,
		SettleTimeout:         4 * time.Second,
		Seed:                  1,
	}
}

// withDefaults fills every zero field from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	set := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	set(&c.Width, d.Width)
	set(&c.Height, d.Height)
	set(&c.NodeRadius, d.NodeRadius)
	set(&c.CollisionMargin, d.CollisionMargin)
	set(&c.LinkDistanceBase, d.LinkDistanceBase)
	set(&c.LinkDistancePerWeight, d.LinkDistancePerWeight)
	set(&c.LinkDistanceMin, d.LinkDistanceMin)
	set(&c.LinkDistanceMax, d.LinkDistanceMax)
	set(&c.ChargeStrength, d.ChargeStrength)
	set(&c.CenterStrength, d.CenterStrength)
	set(&c.ClusterStrength, d.ClusterStrength)
	set(&c.CollideStrength, d.CollideStrength)
	set(&c.VelocityDecay, d.VelocityDecay)
	set(&c.AlphaDecay, d.AlphaDecay)
	set(&c.AlphaMin, d.AlphaMin)
	set(&c.DragAlphaTarget, d.DragAlphaTarget)
	set(&c.ReleaseAlphaCap, d.ReleaseAlphaCap)
	if c.SettleTimeout == 0 {
		c.SettleTimeout = d.SettleTimeout
	}
	if c.Seed == 0 {
		c.Seed = d.Seed
	}
	if c.LinkDistanceMax < c.LinkDistanceMin {
		c.LinkDistanceMax = c.LinkDistanceMin
	}
	return c
}

// LinkDistance returns the rest distance for an edge of the given weight.
// Heavier edges pull their endpoints closer.
func (c Config) LinkDistance(weight float64) float64 {
	d := c.LinkDistanceBase - weight*c.LinkDistancePerWeight
	return math.Max(c.LinkDistanceMin, math.Min(c.LinkDistanceMax, d))
}

// MinSeparation is the center distance the collision force aims for.
func (c Config) MinSeparation() float64 {
	return 2*c.NodeRadius + c.CollisionMargin
}
