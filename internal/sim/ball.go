package sim

// Frame selects the vertical coordinate convention a simulation runs in.
// The physics frame is the default; the screen frame exists for viewers that
// want raw canvas coordinates without doing the flip themselves.
type Frame int

const (
	// FrameYUp: y grows upward, ground at Config.GroundY, gravity pulls
	// toward decreasing y.
	FrameYUp Frame = iota
	// FrameYDown: screen convention, y grows downward, ground below the
	// ball, gravity pulls toward increasing y.
	FrameYDown
)

// Ball is the single simulated body. Radius and Mass never change after
// construction; the controller exclusively owns the mutable fields.
type Ball struct {
	X, Y   float64
	VX, VY float64
	AY     float64 // recomputed each sub-step, carried only for snapshots
	Radius float64
	Mass   float64
}

// startBall places a fresh ball at the configured rest position with zero
// velocity. StartHeight measures the bottom of the ball above the ground, so
// the center sits one radius further out.
func startBall(cfg Config) Ball {
	b := Ball{
		X:      cfg.Width / 2,
		Radius: cfg.Radius,
		Mass:   cfg.Mass,
	}
	if cfg.Frame == FrameYDown {
		b.Y = cfg.GroundY - cfg.StartHeight - cfg.Radius
	} else {
		b.Y = cfg.GroundY + cfg.StartHeight + cfg.Radius
	}
	return b
}
