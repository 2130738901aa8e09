package sim

import "math"

// Advance integrates one sub-step of dt seconds and returns the resulting
// ball. Pure: everything it reads is in the arguments, so the same inputs
// always produce the same output. dt is normally cfg.SubstepDt; only the
// final remainder of a larger request may be shorter.
func Advance(b Ball, cfg Config, dt float64) Ball {
	if dt <= 0 {
		return b
	}

	// A ball resting on the ground stays put: no acceleration, no motion.
	// Without this the resting ball would sink one sub-step into the ground
	// and get clamped back every frame.
	if b.VY == 0 && inGroundContact(b, cfg) {
		b.AY = 0
		return b
	}

	gravity := -cfg.Gravity
	if cfg.Frame == FrameYDown {
		gravity = cfg.Gravity
	}

	// Quadratic drag opposing the current vertical velocity, scaled by the
	// ball's cross section.
	drag := 0.0
	if cfg.AirResistance > 0 && b.VY != 0 {
		area := math.Pi * b.Radius * b.Radius
		drag = -sign(b.VY) * cfg.AirResistance * b.VY * b.VY * area / b.Mass
	}
	b.AY = gravity + drag

	// Semi-implicit Euler: velocity first, position with the new velocity.
	b.VY += b.AY * dt
	b.Y += b.VY * dt

	return resolveBounce(b, cfg)
}

// resolveBounce clamps the ball to ground contact and reflects the vertical
// velocity, losing the configured fraction of speed. Post-bounce speeds below
// MinBounceSpeed are zeroed so the ball comes to rest instead of
// micro-bouncing forever.
func resolveBounce(b Ball, cfg Config) Ball {
	switch cfg.Frame {
	case FrameYDown:
		if b.Y+b.Radius >= cfg.GroundY && b.VY > 0 {
			b.Y = cfg.GroundY - b.Radius
			b.VY = -b.VY * cfg.BounceDamping
			if math.Abs(b.VY) < cfg.MinBounceSpeed {
				b.VY = 0
			}
		}
	default:
		if b.Y-b.Radius <= cfg.GroundY && b.VY < 0 {
			b.Y = cfg.GroundY + b.Radius
			b.VY = -b.VY * cfg.BounceDamping
			if math.Abs(b.VY) < cfg.MinBounceSpeed {
				b.VY = 0
			}
		}
	}
	return b
}

func inGroundContact(b Ball, cfg Config) bool {
	if cfg.Frame == FrameYDown {
		return b.Y+b.Radius >= cfg.GroundY
	}
	return b.Y-b.Radius <= cfg.GroundY
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
