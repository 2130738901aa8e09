package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInvalidParameter is returned when a setter receives a non-finite or
// out-of-policy value. The rejected call leaves all state untouched.
var ErrInvalidParameter = errors.New("invalid parameter")

// stepEps guards the forward loop against infinitesimal remainders left over
// from floating-point target arithmetic.
const stepEps = 1e-12

// Controller owns one ball simulation: the canonical ball, elapsed simulated
// time, the play flag and the replay history. Every public method takes the
// controller lock, so a single instance can be driven from the command loop
// and the play auto-stepper at once. Instances share nothing with each other.
type Controller struct {
	mu        sync.Mutex
	cfg       Config
	ball      Ball
	time      float64
	playing   bool
	autoPause bool
	history   *History
}

// StepResult pairs a snapshot with the truncation flag: Truncated reports a
// rewind that ran past the retained history and clamped to the oldest entry.
type StepResult struct {
	Snapshot  Snapshot
	Truncated bool
}

// HistoryInfo describes the current rewind capacity.
type HistoryInfo struct {
	FramesStored    int
	MaxFrames       int
	RetainedSeconds float64
	CanRewind       bool
}

func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:     cfg,
		history: newHistory(cfg.HistoryKeepS, 1/cfg.SubstepDt),
	}
	c.resetLocked()
	return c, nil
}

// Config returns a copy of the instance parameters.
func (c *Controller) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Reset reinitializes the ball at the configured start height with zero
// velocity, clears time and history (keeping the t=0 entry) and pauses.
// It cannot fail.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	return c.snapshotLocked()
}

func (c *Controller) resetLocked() {
	c.ball = startBall(c.cfg)
	c.time = 0
	c.playing = false
	c.history.clear()
	c.history.push(Entry{T: 0, Ball: c.ball})
}

// Step advances or rewinds simulated time by dt seconds. Forward requests run
// fixed sub-steps plus one shorter remainder. Backward requests restore the
// nearest retained state at or before the target and replay forward to land
// exactly on it, so rewinding to a time is numerically identical to having
// stepped there directly. dt of zero is a no-op; the target time never goes
// below zero.
func (c *Controller) Step(dt float64) (StepResult, error) {
	if !isFinite(dt) {
		return StepResult{}, fmt.Errorf("%w: time step must be finite, got %v", ErrInvalidParameter, dt)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var res StepResult
	switch {
	case dt > 0:
		c.forwardLocked(c.time + dt)
	case dt < 0:
		target := c.time + dt
		if target < 0 {
			target = 0
		}
		res.Truncated = c.rewindLocked(target)
	default:
		res.Snapshot = c.snapshotLocked()
		return res, nil
	}
	if c.autoPause {
		c.playing = false
	}
	res.Snapshot = c.snapshotLocked()
	return res, nil
}

// StepFrames steps by whole sub-steps instead of seconds. Negative counts go
// through the same rewind path as negative time steps.
func (c *Controller) StepFrames(n int) StepResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res StepResult
	switch {
	case n > 0:
		c.forwardLocked(c.time + float64(n)*c.cfg.SubstepDt)
	case n < 0:
		target := c.time + float64(n)*c.cfg.SubstepDt
		if target < 0 {
			target = 0
		}
		res.Truncated = c.rewindLocked(target)
	default:
		res.Snapshot = c.snapshotLocked()
		return res
	}
	if c.autoPause {
		c.playing = false
	}
	res.Snapshot = c.snapshotLocked()
	return res
}

// JumpToTime moves to an absolute simulated time, rewinding or fast-
// forwarding as needed. Negative targets clamp to zero.
func (c *Controller) JumpToTime(t float64) (StepResult, error) {
	if !isFinite(t) {
		return StepResult{}, fmt.Errorf("%w: target time must be finite, got %v", ErrInvalidParameter, t)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if t < 0 {
		t = 0
	}
	var res StepResult
	switch {
	case t < c.time:
		res.Truncated = c.rewindLocked(t)
	case t > c.time:
		c.forwardLocked(t)
	}
	if c.autoPause {
		c.playing = false
	}
	res.Snapshot = c.snapshotLocked()
	return res, nil
}

// forwardLocked integrates full sub-steps up to target, finishing with one
// shorter remainder so the run lands exactly on the target time. A history
// entry is recorded after every sub-step.
func (c *Controller) forwardLocked(target float64) {
	for target-c.time > stepEps {
		h := c.cfg.SubstepDt
		if rem := target - c.time; rem < h {
			h = rem
		}
		c.ball = Advance(c.ball, c.cfg, h)
		c.time += h
		if math.Abs(target-c.time) <= stepEps {
			c.time = target
		}
		c.history.push(Entry{T: c.time, Ball: c.ball})
	}
	// Land exactly on the target; the loop can leave time short of it by a
	// rounding-sized remainder.
	c.time = target
}

// rewindLocked restores the newest retained state at or before target, drops
// the now-stale future entries and replays forward to the exact target.
// Returns true when target precedes the retention window and the run clamped
// to the oldest retained entry instead.
func (c *Controller) rewindLocked(target float64) bool {
	if c.history.count() == 0 {
		// History always holds at least the reset entry; an empty ring means
		// the run was never seeded, so seed it now.
		c.resetLocked()
		return false
	}
	e, ok := c.history.latestAtOrBefore(target)
	c.ball = e.Ball
	c.time = e.T
	c.history.dropAfter(e.T)
	if !ok {
		return true
	}
	if target > c.time {
		c.forwardLocked(target)
	}
	return false
}

// Tick advances one sub-step on behalf of the play driver. Unlike Step it
// does nothing while paused and never triggers auto-pause; the reported bool
// says whether the run advanced.
func (c *Controller) Tick() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return Snapshot{}, false
	}
	c.forwardLocked(c.time + c.cfg.SubstepDt)
	return c.snapshotLocked(), true
}

// TogglePlay flips the play flag. The controller never schedules its own
// steps; an external driver calls Tick at the sub-step rate while playing.
func (c *Controller) TogglePlay() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = !c.playing
	return c.snapshotLocked()
}

// Play starts the simulation if paused.
func (c *Controller) Play() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = true
	return c.snapshotLocked()
}

// Pause stops the simulation if playing.
func (c *Controller) Pause() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
	return c.snapshotLocked()
}

// Playing reports the play flag for the external driving loop.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// SetAutoPause makes every manual step or jump pause the run afterwards.
func (c *Controller) SetAutoPause(enabled bool) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoPause = enabled
	return c.snapshotLocked()
}

// SetStartY sets the ball's rest height (bottom of the ball above ground) and
// performs an implicit reset.
func (c *Controller) SetStartY(y float64) (Snapshot, error) {
	if !isFinite(y) || y < 0 {
		return Snapshot{}, fmt.Errorf("%w: start height must be finite and non-negative, got %v", ErrInvalidParameter, y)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.StartHeight = y
	c.resetLocked()
	return c.snapshotLocked(), nil
}

// SetGravity changes gravity for subsequent sub-steps without resetting the
// run. Negative gravity is a configuration error, not a physics feature.
func (c *Controller) SetGravity(g float64) (Snapshot, error) {
	if !isFinite(g) || g < 0 {
		return Snapshot{}, fmt.Errorf("%w: gravity must be finite and non-negative, got %v", ErrInvalidParameter, g)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Gravity = g
	return c.snapshotLocked(), nil
}

// GetState returns the current snapshot without mutating anything.
func (c *Controller) GetState() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// History reports the current rewind capacity.
func (c *Controller) History() HistoryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return HistoryInfo{
		FramesStored:    c.history.count(),
		MaxFrames:       c.history.capacity(),
		RetainedSeconds: float64(c.history.count()) * c.cfg.SubstepDt,
		CanRewind:       c.history.count() > 1,
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Project(c.ball, c.time, c.playing, c.cfg)
}
