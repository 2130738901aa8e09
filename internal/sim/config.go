package sim

import (
	"fmt"
	"math"
)

// Defaults keep the tuning of the original web build: a screen-scale world
// where the ball is 20 px across and gravity is measured in px/s².
const (
	DefaultGravity           = 6000.0
	DefaultAirResistance     = 0.0
	DefaultBounceDamping     = 0.8
	DefaultMinBounceSpeed    = 50.0
	DefaultSubstepHz         = 144.0
	DefaultRadius            = 20.0
	DefaultMass              = 1.0
	DefaultWidth             = 800.0
	DefaultStartHeight       = 400.0
	DefaultViewportPadding   = 50.0
	DefaultMinViewportHeight = 600.0
	DefaultViewportDepth     = 300.0
	DefaultHistoryKeepS      = 10.0
)

// Config is the per-instance parameter set of a simulation. Instances never
// share a Config value; reconfiguration goes through explicit controller
// setters, never through ambient mutation.
type Config struct {
	Frame          Frame
	Gravity        float64 // positive magnitude; the frame supplies the sign
	AirResistance  float64 // quadratic drag coefficient, 0 disables drag
	BounceDamping  float64 // fraction of vertical speed kept per bounce, [0,1]
	MinBounceSpeed float64 // below this post-bounce speed the ball rests
	SubstepDt      float64 // fixed integration sub-step in seconds
	GroundY        float64
	Radius         float64
	Mass           float64

	Width       float64 // horizontal extent of the world
	StartHeight float64 // bottom of the ball above ground at reset

	ViewportPadding   float64
	MinViewportHeight float64
	ViewportDepth     float64 // viewport extends this far below ground

	HistoryKeepS float64 // seconds of sub-step history retained for rewinds
}

func DefaultConfig() Config {
	return Config{
		Frame:             FrameYUp,
		Gravity:           DefaultGravity,
		AirResistance:     DefaultAirResistance,
		BounceDamping:     DefaultBounceDamping,
		MinBounceSpeed:    DefaultMinBounceSpeed,
		SubstepDt:         1.0 / DefaultSubstepHz,
		GroundY:           0,
		Radius:            DefaultRadius,
		Mass:              DefaultMass,
		Width:             DefaultWidth,
		StartHeight:       DefaultStartHeight,
		ViewportPadding:   DefaultViewportPadding,
		MinViewportHeight: DefaultMinViewportHeight,
		ViewportDepth:     DefaultViewportDepth,
		HistoryKeepS:      DefaultHistoryKeepS,
	}
}

// Validate reports the first out-of-policy parameter. A config that passes
// here keeps every numeric path in the engine defined: mass and sub-step are
// never zero, damping never amplifies a bounce.
func (c Config) Validate() error {
	switch {
	case !isFinite(c.Gravity) || c.Gravity < 0:
		return fmt.Errorf("%w: gravity must be finite and non-negative, got %v", ErrInvalidParameter, c.Gravity)
	case !isFinite(c.AirResistance) || c.AirResistance < 0:
		return fmt.Errorf("%w: air resistance must be finite and non-negative, got %v", ErrInvalidParameter, c.AirResistance)
	case !isFinite(c.BounceDamping) || c.BounceDamping < 0 || c.BounceDamping > 1:
		return fmt.Errorf("%w: bounce damping must be within [0,1], got %v", ErrInvalidParameter, c.BounceDamping)
	case !isFinite(c.MinBounceSpeed) || c.MinBounceSpeed < 0:
		return fmt.Errorf("%w: min bounce speed must be finite and non-negative, got %v", ErrInvalidParameter, c.MinBounceSpeed)
	case !isFinite(c.SubstepDt) || c.SubstepDt <= 0:
		return fmt.Errorf("%w: sub-step must be finite and positive, got %v", ErrInvalidParameter, c.SubstepDt)
	case !isFinite(c.Radius) || c.Radius <= 0:
		return fmt.Errorf("%w: radius must be finite and positive, got %v", ErrInvalidParameter, c.Radius)
	case !isFinite(c.Mass) || c.Mass <= 0:
		return fmt.Errorf("%w: mass must be finite and positive, got %v", ErrInvalidParameter, c.Mass)
	case !isFinite(c.GroundY):
		return fmt.Errorf("%w: ground must be finite, got %v", ErrInvalidParameter, c.GroundY)
	case !isFinite(c.StartHeight) || c.StartHeight < 0:
		return fmt.Errorf("%w: start height must be finite and non-negative, got %v", ErrInvalidParameter, c.StartHeight)
	case !isFinite(c.Width) || c.Width <= 0:
		return fmt.Errorf("%w: width must be finite and positive, got %v", ErrInvalidParameter, c.Width)
	case !isFinite(c.HistoryKeepS) || c.HistoryKeepS <= 0:
		return fmt.Errorf("%w: history retention must be finite and positive, got %v", ErrInvalidParameter, c.HistoryKeepS)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
