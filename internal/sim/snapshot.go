package sim

import "math"

// Snapshot is the fully derived, externally consumable view of a simulation
// at one point in time. It is produced on demand, handed to the relay for
// serialization and then discarded, never stored.
type Snapshot struct {
	Time     float64
	Playing  bool
	Ball     BallState
	GroundY  float64
	Height   float64 // bottom of the ball above ground, never negative
	Energy   Energy
	Viewport Bounds
}

type BallState struct {
	X, Y          float64
	Radius        float64
	VelocityY     float64
	AccelerationY float64
}

type Energy struct {
	Kinetic   float64
	Potential float64
	Total     float64
}

type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Project derives a snapshot from raw simulation state. Pure and free of
// error conditions: every input was validated before it got here.
func Project(b Ball, t float64, playing bool, cfg Config) Snapshot {
	h := heightAboveGround(b, cfg)
	ke := 0.5 * b.Mass * b.VY * b.VY
	pe := b.Mass * cfg.Gravity * h
	return Snapshot{
		Time:    t,
		Playing: playing,
		Ball: BallState{
			X:             b.X,
			Y:             b.Y,
			Radius:        b.Radius,
			VelocityY:     b.VY,
			AccelerationY: b.AY,
		},
		GroundY:  cfg.GroundY,
		Height:   h,
		Energy:   Energy{Kinetic: ke, Potential: pe, Total: ke + pe},
		Viewport: viewportBounds(b, cfg),
	}
}

func heightAboveGround(b Ball, cfg Config) float64 {
	var h float64
	if cfg.Frame == FrameYDown {
		h = cfg.GroundY - (b.Y + b.Radius)
	} else {
		h = b.Y - b.Radius - cfg.GroundY
	}
	return math.Max(0, h)
}

// viewportBounds frames the ball for a viewer: the full world width, a fixed
// margin below ground, and a top edge that follows the ball upward but never
// drops below the configured minimum height.
func viewportBounds(b Ball, cfg Config) Bounds {
	maxY := math.Max(b.Y+b.Radius+cfg.ViewportPadding, cfg.MinViewportHeight)
	return Bounds{
		MinX: 0,
		MaxX: cfg.Width,
		MinY: -cfg.ViewportDepth,
		MaxY: maxY,
	}
}

// PhysicsToCanvasY maps a physics y (ground at 0, up positive) onto a canvas
// row for a viewer of the given pixel height. The axis flips: the viewport
// floor lands on the canvas bottom.
func PhysicsToCanvasY(y float64, bounds Bounds, canvasHeight float64) float64 {
	norm := (y - bounds.MinY) / (bounds.MaxY - bounds.MinY)
	return canvasHeight - norm*canvasHeight
}

// CanvasToPhysicsY is the inverse of PhysicsToCanvasY.
func CanvasToPhysicsY(canvasY float64, bounds Bounds, canvasHeight float64) float64 {
	norm := (canvasHeight - canvasY) / canvasHeight
	return bounds.MinY + norm*(bounds.MaxY-bounds.MinY)
}
