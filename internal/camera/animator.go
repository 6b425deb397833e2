// internal/camera/animator.go
package camera

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultStandoff is how far the camera stops in front of a focused exhibit.
	DefaultStandoff = 3.0
	// DefaultDuration is the length of a focus transition.
	DefaultDuration = 1000 * time.Millisecond
)

// fallbackDirection is the gaze used when neither the camera→target axis nor
// the previous view direction is usable. Scene cameras look down -Z.
var fallbackDirection = Vec3{0, 0, -1}

// Pose is a camera position together with the point it looks at.
type Pose struct {
	Position Vec3 `json:"position"`
	LookAt   Vec3 `json:"look_at"`
}

// FocusRequest asks the camera to frame Target. Zero Standoff and Duration
// select the defaults.
type FocusRequest struct {
	Target   Vec3
	Standoff float64
	Duration time.Duration
}

// Easing maps linear progress in [0,1] to eased progress in [0,1].
type Easing func(t float64) float64

// EaseOutCubic starts fast and decelerates to zero: 1 - (1-t)^3.
func EaseOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

// Run is one planned camera transition. It is an immutable value; evaluating
// it never changes it.
type Run struct {
	Start     Pose          `json:"start"`
	End       Pose          `json:"end"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Easing    Easing        `json:"-"`
}

// Plan computes the run that moves the camera from current to a pose framing
// req.Target. The end position sits Standoff units from the target along the
// camera→target axis: end = target + normalize(target - camera) * -standoff.
func Plan(req FocusRequest, current Pose, now time.Time) Run {
	target := req.Target.Sanitize()
	current = Pose{Position: current.Position.Sanitize(), LookAt: current.LookAt.Sanitize()}

	standoff := req.Standoff
	if standoff <= 0 || !finite(standoff) {
		standoff = DefaultStandoff
	}
	duration := req.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	direction, ok := target.Sub(current.Position).Normalize()
	if !ok {
		direction, ok = current.LookAt.Sub(current.Position).Normalize()
		if !ok {
			direction = fallbackDirection
		}
	}

	return Run{
		Start: current,
		End: Pose{
			Position: target.Add(direction.Scale(-standoff)),
			LookAt:   target,
		},
		StartTime: now,
		Duration:  duration,
		Easing:    EaseOutCubic,
	}
}

// Progress returns clamp((now - start) / duration, 0, 1).
func (r Run) Progress(now time.Time) float64 {
	if r.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(r.StartTime)) / float64(r.Duration)
	switch {
	case p < 0 || math.IsNaN(p):
		return 0
	case p > 1:
		return 1
	}
	return p
}

// PoseAt evaluates the run at now. Only the position is interpolated; the
// gaze stays fixed on the target for the whole run.
func (r Run) PoseAt(now time.Time) Pose {
	ease := r.Easing
	if ease == nil {
		ease = EaseOutCubic
	}
	progress := r.Progress(now)
	eased := ease(progress)
	if progress >= 1 {
		eased = 1
	}
	return Pose{
		Position: r.Start.Position.Lerp(r.End.Position, eased),
		LookAt:   r.End.LookAt,
	}
}

// Done reports whether the run has reached its end pose at now.
func (r Run) Done(now time.Time) bool {
	return r.Progress(now) >= 1
}

// Frame is a sampled point of a run.
type Frame struct {
	Offset   time.Duration `json:"offset"`
	Progress float64       `json:"progress"`
	Pose     Pose          `json:"pose"`
}

// Sample evaluates run at a fixed frame rate from its start up to and
// including its end. fps <= 0 selects 60.
func Sample(run Run, fps int) []Frame {
	if fps <= 0 {
		fps = 60
	}
	step := time.Second / time.Duration(fps)
	frames := make([]Frame, 0, int(run.Duration/step)+2)
	for offset := time.Duration(0); offset < run.Duration; offset += step {
		now := run.StartTime.Add(offset)
		frames = append(frames, Frame{Offset: offset, Progress: run.Progress(now), Pose: run.PoseAt(now)})
	}
	end := run.StartTime.Add(run.Duration)
	frames = append(frames, Frame{Offset: run.Duration, Progress: 1, Pose: run.PoseAt(end)})
	return frames
}

// Animator drives a camera pose through focus runs. At most one run is
// active; a new focus replaces the current one without blending, starting
// from wherever the last tick left the camera.
type Animator struct {
	mu    sync.Mutex
	pose  Pose
	run   *Run
	clock func() time.Time
}

// AnimatorOption configures an Animator.
type AnimatorOption func(*Animator)

// WithClock overrides the time source used to stamp new runs.
func WithClock(clock func() time.Time) AnimatorOption {
	return func(a *Animator) {
		a.clock = clock
	}
}

// NewAnimator returns an idle animator resting at initial.
func NewAnimator(initial Pose, opts ...AnimatorOption) *Animator {
	a := &Animator{pose: initial, clock: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Focus starts a default-length run framing target.
func (a *Animator) Focus(target Vec3) Run {
	return a.FocusWith(FocusRequest{Target: target})
}

// FocusWith starts a run for req, discarding any run in flight.
func (a *Animator) FocusWith(req FocusRequest) Run {
	a.mu.Lock()
	defer a.mu.Unlock()

	run := Plan(req, a.pose, a.clock())
	a.run = &run
	return run
}

// Tick advances the active run to now and returns the resulting pose. moved
// is false when no run was active. The run retires once it reaches its end.
func (a *Animator) Tick(now time.Time) (pose Pose, moved bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.run == nil {
		return a.pose, false
	}
	a.pose = a.run.PoseAt(now)
	if a.run.Done(now) {
		a.run = nil
	}
	return a.pose, true
}

// Pose returns the camera pose as of the last tick.
func (a *Animator) Pose() Pose {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pose
}

// Active reports whether a run is in flight.
func (a *Animator) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run != nil
}

// Cancel drops the active run, leaving the camera where it is.
func (a *Animator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.run = nil
}

// Reset drops the active run and places the camera at pose.
func (a *Animator) Reset(pose Pose) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.run = nil
	a.pose = pose
}
