package sim

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-9

func newTestController(t *testing.T, mutate ...func(*Config)) *Controller {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func ballsClose(a, b BallState, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps &&
		math.Abs(a.Y-b.Y) <= eps &&
		math.Abs(a.VelocityY-b.VelocityY) <= eps
}

// TestNewControllerRejectsBadConfig verifies construction-time validation:
// the controller never exists with a zero mass or an amplifying bounce.
func TestNewControllerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero mass", func(c *Config) { c.Mass = 0 }},
		{"negative radius", func(c *Config) { c.Radius = -1 }},
		{"nan gravity", func(c *Config) { c.Gravity = math.NaN() }},
		{"damping above one", func(c *Config) { c.BounceDamping = 1.5 }},
		{"zero substep", func(c *Config) { c.SubstepDt = 0 }},
	}
	for _, tc := range cases {
		cfg := testConfig()
		tc.mutate(&cfg)
		if _, err := NewController(cfg); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%s: got err=%v, want ErrInvalidParameter", tc.name, err)
		}
	}
}

// TestResetState checks the post-reset invariants: paused, t=0, ball resting
// at the start height with zero velocity, history holding only the seed.
func TestResetState(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Step(0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}

	snap := c.Reset()

	if snap.Time != 0 || snap.Playing {
		t.Errorf("reset state: time=%.6f playing=%v, want 0 and false", snap.Time, snap.Playing)
	}
	wantY := c.Config().StartHeight + c.Config().Radius
	if snap.Ball.Y != wantY || snap.Ball.VelocityY != 0 {
		t.Errorf("reset ball: y=%.6f vy=%.6f, want y=%.6f vy=0", snap.Ball.Y, snap.Ball.VelocityY, wantY)
	}
	if info := c.History(); info.FramesStored != 1 || info.CanRewind {
		t.Errorf("reset history: %+v, want a single seed entry", info)
	}
}

// TestStepZeroIsNoop: step(0) must leave time, ball and history untouched.
func TestStepZeroIsNoop(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Step(0.25); err != nil {
		t.Fatalf("Step: %v", err)
	}
	before := c.GetState()
	frames := c.History().FramesStored

	res, err := c.Step(0)
	if err != nil {
		t.Fatalf("Step(0): %v", err)
	}

	if res.Snapshot != before {
		t.Errorf("step(0) changed the snapshot:\n before %+v\n after  %+v", before, res.Snapshot)
	}
	if got := c.History().FramesStored; got != frames {
		t.Errorf("step(0) changed history length: %d -> %d", frames, got)
	}
}

// A one-second forward step leaves time at exactly 1.0 with the ball fallen
// from its start position.
func TestForwardFall(t *testing.T) {
	c := newTestController(t)
	start := c.GetState().Ball

	res, err := c.Step(1.0)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if res.Snapshot.Time != 1.0 {
		t.Errorf("time after step(1.0): got %.17g, want exactly 1.0", res.Snapshot.Time)
	}
	if res.Snapshot.Ball.Y == start.Y && res.Snapshot.Ball.VelocityY == 0 {
		t.Error("ball did not move during a one-second fall")
	}
	if res.Truncated {
		t.Error("forward step reported history truncation")
	}
}

// Stepping forward one second and back again restores the post-reset state.
func TestRewindRoundTrip(t *testing.T) {
	c := newTestController(t)
	initial := c.GetState()

	if _, err := c.Step(1.0); err != nil {
		t.Fatalf("Step(1.0): %v", err)
	}
	res, err := c.Step(-1.0)
	if err != nil {
		t.Fatalf("Step(-1.0): %v", err)
	}

	if math.Abs(res.Snapshot.Time-initial.Time) > tol {
		t.Errorf("time after round trip: got %.12f, want %.12f", res.Snapshot.Time, initial.Time)
	}
	if !ballsClose(res.Snapshot.Ball, initial.Ball, tol) {
		t.Errorf("ball after round trip:\n got  %+v\n want %+v", res.Snapshot.Ball, initial.Ball)
	}
	if res.Truncated {
		t.Error("round trip within retention reported truncation")
	}
}

// TestRewindReplaysExactly verifies the replay policy: rewinding to a mid-run
// time gives the same state as a fresh run stepped directly to that time.
func TestRewindReplaysExactly(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Step(1.0); err != nil {
		t.Fatalf("Step(1.0): %v", err)
	}
	res, err := c.Step(-0.35)
	if err != nil {
		t.Fatalf("Step(-0.35): %v", err)
	}

	fresh := newTestController(t)
	direct, err := fresh.Step(0.65)
	if err != nil {
		t.Fatalf("Step(0.65): %v", err)
	}

	if math.Abs(res.Snapshot.Time-direct.Snapshot.Time) > tol {
		t.Errorf("time: rewound %.12f vs direct %.12f", res.Snapshot.Time, direct.Snapshot.Time)
	}
	if !ballsClose(res.Snapshot.Ball, direct.Snapshot.Ball, tol) {
		t.Errorf("rewind did not reproduce the forward run:\n rewound %+v\n direct  %+v", res.Snapshot.Ball, direct.Snapshot.Ball)
	}
}

// Negative gravity is rejected with ErrInvalidParameter and the run stays
// untouched.
func TestRejectNegativeGravity(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Step(0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}
	before := c.GetState()

	_, err := c.SetGravity(-5)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("SetGravity(-5): got err=%v, want ErrInvalidParameter", err)
	}

	if after := c.GetState(); after != before {
		t.Errorf("rejected setter mutated state:\n before %+v\n after  %+v", before, after)
	}
}

// Ten step(0.1) calls land on the same state as one step(1.0).
func TestSubstepAccumulation(t *testing.T) {
	many := newTestController(t)
	for i := 0; i < 10; i++ {
		if _, err := many.Step(0.1); err != nil {
			t.Fatalf("Step(0.1) #%d: %v", i, err)
		}
	}
	one := newTestController(t)
	if _, err := one.Step(1.0); err != nil {
		t.Fatalf("Step(1.0): %v", err)
	}

	a, b := many.GetState(), one.GetState()
	if math.Abs(a.Time-b.Time) > tol {
		t.Errorf("time: accumulated %.12f vs single %.12f", a.Time, b.Time)
	}
	if !ballsClose(a.Ball, b.Ball, tol) {
		t.Errorf("accumulated stepping diverged from a single step:\n ten   %+v\n one   %+v", a.Ball, b.Ball)
	}
}

// TestDeterminism runs the identical command sequence on two fresh
// controllers and requires identical snapshots throughout.
func TestDeterminism(t *testing.T) {
	steps := []float64{0.3, 0.05, -0.1, 0.77, -0.5, 1.3}
	a := newTestController(t)
	b := newTestController(t)

	for i, dt := range steps {
		ra, err := a.Step(dt)
		if err != nil {
			t.Fatalf("a.Step(%v): %v", dt, err)
		}
		rb, err := b.Step(dt)
		if err != nil {
			t.Fatalf("b.Step(%v): %v", dt, err)
		}
		if ra.Snapshot != rb.Snapshot {
			t.Fatalf("step %d (%v): controllers diverged\n a %+v\n b %+v", i, dt, ra.Snapshot, rb.Snapshot)
		}
	}
}

// TestTimeNeverNegative rewinds past zero and checks the clamp.
func TestTimeNeverNegative(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Step(0.2); err != nil {
		t.Fatalf("Step: %v", err)
	}

	res, err := c.Step(-5)
	if err != nil {
		t.Fatalf("Step(-5): %v", err)
	}
	if res.Snapshot.Time != 0 {
		t.Errorf("time after deep rewind: got %.12f, want 0", res.Snapshot.Time)
	}
	if res.Truncated {
		t.Error("rewind to the retained t=0 entry should not report truncation")
	}
}

// TestHistoryTruncatedFlag shrinks the retention window, steps past it and
// checks the rewind clamps to the oldest retained entry with the flag set.
func TestHistoryTruncatedFlag(t *testing.T) {
	c := newTestController(t, func(cfg *Config) { cfg.HistoryKeepS = 0.1 })
	if _, err := c.Step(1.0); err != nil {
		t.Fatalf("Step(1.0): %v", err)
	}

	res, err := c.Step(-1.0)
	if err != nil {
		t.Fatalf("Step(-1.0): %v", err)
	}

	if !res.Truncated {
		t.Fatal("rewind beyond retention did not report truncation")
	}
	if res.Snapshot.Time <= 0 {
		t.Errorf("clamped rewind should land on the oldest retained entry, got t=%.6f", res.Snapshot.Time)
	}
	info := c.History()
	if info.FramesStored != 1 {
		t.Errorf("after clamping to the oldest entry, history should hold it alone: %+v", info)
	}
}

// TestMonotonicNonNegativity drives the ball through several bounces and
// checks it never sinks below ground contact and time never regresses on
// forward steps.
func TestMonotonicNonNegativity(t *testing.T) {
	c := newTestController(t)
	floor := c.Config().GroundY + c.Config().Radius - tol
	lastTime := 0.0

	for i := 0; i < 600; i++ {
		res := c.StepFrames(1)
		if res.Snapshot.Ball.Y < floor {
			t.Fatalf("frame %d: ball sank below ground contact: y=%.9f", i, res.Snapshot.Ball.Y)
		}
		if res.Snapshot.Time < lastTime {
			t.Fatalf("frame %d: time regressed: %.9f -> %.9f", i, lastTime, res.Snapshot.Time)
		}
		lastTime = res.Snapshot.Time
	}
}

// TestStepFramesMatchesTimeSteps: frame stepping is sugar for sub-step
// multiples of time stepping.
func TestStepFramesMatchesTimeSteps(t *testing.T) {
	frames := newTestController(t)
	seconds := newTestController(t)

	rf := frames.StepFrames(6)
	rs, err := seconds.Step(6.0 / 60.0)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	if math.Abs(rf.Snapshot.Time-rs.Snapshot.Time) > tol {
		t.Errorf("time: frames %.12f vs seconds %.12f", rf.Snapshot.Time, rs.Snapshot.Time)
	}
	if !ballsClose(rf.Snapshot.Ball, rs.Snapshot.Ball, tol) {
		t.Errorf("frame stepping diverged from time stepping:\n frames  %+v\n seconds %+v", rf.Snapshot.Ball, rs.Snapshot.Ball)
	}

	// Backward frames go through the rewind path.
	back := frames.StepFrames(-6)
	if math.Abs(back.Snapshot.Time) > tol {
		t.Errorf("time after stepping six frames back: got %.12f, want 0", back.Snapshot.Time)
	}
}

// TestJumpToTime covers absolute jumps in both directions plus the clamp at
// zero.
func TestJumpToTime(t *testing.T) {
	c := newTestController(t)

	res, err := c.JumpToTime(2.0)
	if err != nil {
		t.Fatalf("JumpToTime(2.0): %v", err)
	}
	if res.Snapshot.Time != 2.0 {
		t.Errorf("forward jump: time %.12f, want 2.0", res.Snapshot.Time)
	}

	res, err = c.JumpToTime(0.7)
	if err != nil {
		t.Fatalf("JumpToTime(0.7): %v", err)
	}
	fresh := newTestController(t)
	direct, err := fresh.Step(0.7)
	if err != nil {
		t.Fatalf("Step(0.7): %v", err)
	}
	if !ballsClose(res.Snapshot.Ball, direct.Snapshot.Ball, tol) {
		t.Errorf("backward jump did not reproduce the forward run:\n jumped %+v\n direct %+v", res.Snapshot.Ball, direct.Snapshot.Ball)
	}

	res, err = c.JumpToTime(-3)
	if err != nil {
		t.Fatalf("JumpToTime(-3): %v", err)
	}
	if res.Snapshot.Time != 0 {
		t.Errorf("negative jump target should clamp to zero, got %.12f", res.Snapshot.Time)
	}

	if _, err := c.JumpToTime(math.Inf(1)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("JumpToTime(+Inf): got err=%v, want ErrInvalidParameter", err)
	}
}

// TestSetStartYResets: changing the start height is a full reconfiguration
// with an implicit reset.
func TestSetStartYResets(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Step(0.8); err != nil {
		t.Fatalf("Step: %v", err)
	}

	snap, err := c.SetStartY(300)
	if err != nil {
		t.Fatalf("SetStartY: %v", err)
	}

	if snap.Time != 0 || snap.Playing {
		t.Errorf("after SetStartY: time=%.6f playing=%v, want a paused reset", snap.Time, snap.Playing)
	}
	wantY := 300 + c.Config().Radius
	if snap.Ball.Y != wantY {
		t.Errorf("ball center after SetStartY(300): got %.6f, want %.6f", snap.Ball.Y, wantY)
	}

	if _, err := c.SetStartY(math.NaN()); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SetStartY(NaN): got err=%v, want ErrInvalidParameter", err)
	}
	if _, err := c.SetStartY(-10); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("SetStartY(-10): got err=%v, want ErrInvalidParameter", err)
	}
}

// TestSetGravityKeepsState: gravity changes apply to subsequent sub-steps
// without resetting the run.
func TestSetGravityKeepsState(t *testing.T) {
	c := newTestController(t)
	if _, err := c.Step(0.3); err != nil {
		t.Fatalf("Step: %v", err)
	}
	before := c.GetState()

	snap, err := c.SetGravity(500)
	if err != nil {
		t.Fatalf("SetGravity: %v", err)
	}
	if snap.Time != before.Time || snap.Ball.Y != before.Ball.Y {
		t.Errorf("SetGravity reset the run: time %.6f -> %.6f", before.Time, snap.Time)
	}

	res := c.StepFrames(1)
	if math.Abs(res.Snapshot.Ball.AccelerationY-(-500)) > tol {
		t.Errorf("acceleration after gravity change: got %.6f, want -500", res.Snapshot.Ball.AccelerationY)
	}
}

// TestStepRejectsNonFinite keeps NaN out of the time accumulator.
func TestStepRejectsNonFinite(t *testing.T) {
	c := newTestController(t)
	before := c.GetState()

	if _, err := c.Step(math.NaN()); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Step(NaN): got err=%v, want ErrInvalidParameter", err)
	}
	if after := c.GetState(); after != before {
		t.Errorf("rejected step mutated state:\n before %+v\n after  %+v", before, after)
	}
}

// TestPlayPauseAndTick: toggling only flips the flag, Tick advances exactly
// one sub-step while playing and does nothing when paused.
func TestPlayPauseAndTick(t *testing.T) {
	c := newTestController(t)

	if _, advanced := c.Tick(); advanced {
		t.Error("Tick advanced a paused simulation")
	}

	snap := c.TogglePlay()
	if !snap.Playing {
		t.Fatal("TogglePlay did not start the run")
	}
	if snap.Time != 0 {
		t.Errorf("TogglePlay advanced time to %.6f", snap.Time)
	}

	snap, advanced := c.Tick()
	if !advanced {
		t.Fatal("Tick did not advance a playing simulation")
	}
	if math.Abs(snap.Time-c.Config().SubstepDt) > tol {
		t.Errorf("Tick advanced %.9f, want one sub-step %.9f", snap.Time, c.Config().SubstepDt)
	}

	if snap = c.Pause(); snap.Playing {
		t.Error("Pause left the run playing")
	}
	if snap = c.Play(); !snap.Playing {
		t.Error("Play left the run paused")
	}
}

// TestAutoPause: with auto-pause on, any manual step or jump pauses the run;
// the play driver's Tick is exempt.
func TestAutoPause(t *testing.T) {
	c := newTestController(t)
	c.SetAutoPause(true)
	c.Play()

	if _, advanced := c.Tick(); !advanced {
		t.Fatal("Tick should advance while playing")
	}
	if !c.Playing() {
		t.Fatal("Tick must not trigger auto-pause")
	}

	if _, err := c.Step(0.1); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.Playing() {
		t.Error("manual step with auto-pause on left the run playing")
	}

	c.Play()
	if _, err := c.JumpToTime(0.5); err != nil {
		t.Fatalf("JumpToTime: %v", err)
	}
	if c.Playing() {
		t.Error("jump with auto-pause on left the run playing")
	}
}
