// Package crosshair runs one interactive crosshair placement: it owns the
// crosshair's state, applies input events, enforces placement rules and
// reports progress through callbacks until the user confirms or cancels.
package crosshair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/inamate/crosshair/internal/geometry"
	"github.com/inamate/crosshair/internal/placement"
	"github.com/inamate/crosshair/internal/typeid"
)

// ErrNoTarget is returned by ShowTarget when called without a target.
var ErrNoTarget = errors.New("crosshair target is required")

// Phase is a step of the session state machine.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseActive
	PhaseResolved
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseActive:
		return "active"
	case PhaseResolved:
		return "resolved"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether p is Resolved or Cancelled.
func (p Phase) Terminal() bool {
	return p == PhaseResolved || p == PhaseCancelled
}

// Options carries the collaborators of a session.
type Options struct {
	Grid        geometry.Grid
	Constraints []placement.Constraint
	Callbacks   Callbacks
	Renderer    Renderer

	// Walls and Bounds come from the scene and feed wall and bounds constraints.
	Walls  []geometry.Segment
	Bounds geometry.Rect

	Logger *slog.Logger

	// ID names the session; a fresh xhair typeid is generated when empty.
	ID string
}

// Session is one interactive placement attempt.
type Session struct {
	id          string
	cfg         Config
	grid        geometry.Grid
	target      Target
	constraints placement.Set
	callbacks   Callbacks
	renderer    Renderer
	walls       []geometry.Segment
	bounds      geometry.Rect
	logger      *slog.Logger

	mu          sync.Mutex
	phase       Phase
	state       State
	valid       bool
	result      *State
	queue       []Event
	dispatching bool

	wasControlled bool
	done          chan struct{}
	endOnce       sync.Once
}

// Show starts a free-standing crosshair session.
func Show(cfg Config, opts Options) (*Session, error) {
	return start(nil, cfg, opts)
}

// ShowTarget starts a session bound to target. The target is released for
// the duration of the session and its controlled status restored afterwards.
func ShowTarget(target Target, cfg Config, opts Options) (*Session, error) {
	if target == nil {
		return nil, ErrNoTarget
	}
	return start(target, cfg, opts)
}

func start(target Target, cfg Config, opts Options) (*Session, error) {
	if cfg.Kind != "" {
		if _, err := geometry.ParseKind(string(cfg.Kind)); err != nil {
			return nil, fmt.Errorf("show crosshair: %w", err)
		}
	}

	var origin geometry.Point
	if target != nil {
		origin = target.Center()
	}
	st, err := cfg.State(opts.Grid, origin)
	if err != nil {
		return nil, fmt.Errorf("show crosshair: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := opts.ID
	if id == "" {
		id = typeid.NewSessionID()
	}

	constraints := append(placement.Set{}, opts.Constraints...)
	constraints = append(constraints, cfg.Location.constraints()...)

	s := &Session{
		id:          id,
		cfg:         cfg,
		grid:        opts.Grid,
		target:      target,
		constraints: constraints,
		callbacks:   opts.Callbacks,
		renderer:    opts.Renderer,
		walls:       opts.Walls,
		bounds:      opts.Bounds,
		logger:      logger,
		phase:       PhaseInitializing,
		state:       st,
		done:        make(chan struct{}),
	}

	if target != nil {
		s.wasControlled = target.Controlled()
		target.Release()
	}

	defer func() {
		if r := recover(); r != nil {
			s.abort()
			panic(r)
		}
	}()

	s.valid = s.evaluate(st) == nil

	s.render(st)
	s.callbacks.fire(HookShow, st, nil)

	s.mu.Lock()
	s.phase = PhaseActive
	s.mu.Unlock()

	s.logger.Debug("crosshair shown", "session", s.id, "kind", st.Kind, "x", st.X, "y", st.Y)
	return s, nil
}

// ID returns the session's typeid.
func (s *Session) ID() string {
	return s.id
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// State returns a copy of the last committed state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Valid reports whether the current state passed every constraint.
func (s *Session) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid
}

// Done is closed when the session reaches a terminal phase.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends. It returns the final state when the
// crosshair was confirmed and nil when it was cancelled. If ctx ends first
// the session is cancelled and ctx.Err() is returned. When Wait runs inside
// a callback the cancel is queued behind the current event and Wait returns
// without waiting for it.
func (s *Session) Wait(ctx context.Context) (*State, error) {
	select {
	case <-s.done:
		return s.Result(), nil
	case <-ctx.Done():
		s.Cancel()
		select {
		case <-s.done:
			if r := s.Result(); r != nil {
				return r, nil
			}
		default:
		}
		return nil, ctx.Err()
	}
}

// Result returns the confirmed state, or nil while active or after a cancel.
func (s *Session) Result() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// Handle posts an input event. Events on a session that is not active are
// ignored. Events posted from callbacks are queued and handled in order
// after the current one.
func (s *Session) Handle(ev Event) {
	s.post(ev)
}

// Confirm resolves the session if its current state is valid.
func (s *Session) Confirm() {
	s.post(confirmAction{})
}

// Cancel ends the session without a result.
func (s *Session) Cancel() {
	s.post(cancelAction{})
}

// Close cancels the session if it is still running. It is safe to defer.
func (s *Session) Close() error {
	s.Cancel()
	return nil
}

// post queues ev and, unless another call is already draining the queue,
// drains it. Callbacks run without the lock held.
func (s *Session) post(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.dispatching = false
			s.queue = nil
			s.mu.Unlock()
			s.abort()
			panic(r)
		}
	}()

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		active := s.phase == PhaseActive
		s.mu.Unlock()

		if active {
			s.dispatch(next)
		}

		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

func (s *Session) dispatch(ev Event) {
	switch ev := ev.(type) {
	case PointerMove:
		s.move(ev.X, ev.Y)
	case PointerDown:
		switch ev.Button {
		case ButtonLeft:
			s.confirm()
		case ButtonRight:
			s.cancel()
		}
	case Wheel:
		s.wheel(ev)
	case Key:
		switch ev.Name {
		case KeyEscape:
			s.cancel()
		case KeyEnter:
			s.confirm()
		}
	case confirmAction:
		s.confirm()
	case cancelAction:
		s.cancel()
	}
}

func (s *Session) move(px, py float64) {
	cand := s.State()

	switch {
	case s.tracking():
		c := s.target.Center()
		cand.X, cand.Y = c.X, c.Y
		if aims(cand.Kind) && !s.cfg.rotationLocked() && (px != c.X || py != c.Y) {
			deg := math.Atan2(py-c.Y, px-c.X) * 180 / math.Pi
			cand.Direction = normalizeDegrees(geometry.SnapStep(deg, s.cfg.Snap.Direction))
		}
	case s.cfg.dragLocked():
		return
	default:
		cand.X, cand.Y = s.grid.Snap(px, py, s.cfg.Snap.Position)
	}

	s.apply(cand)
}

func (s *Session) wheel(ev Wheel) {
	if ev.Delta == 0 {
		return
	}
	sign := 1.0
	if ev.Delta < 0 {
		sign = -1
	}

	cand := s.State()
	switch {
	case ev.Mods&ModCtrl != 0:
		if s.cfg.rotationLocked() {
			return
		}
		step := s.cfg.Snap.Direction
		if step <= 0 {
			step = defaultRotateStep
		}
		cand.Direction = normalizeDegrees(cand.Direction + sign*step)

	case ev.Mods&ModShift != 0:
		step := s.cfg.Snap.Distance
		if step <= 0 {
			step = s.grid.Distance
		}
		if cand.Kind == geometry.KindRectangle {
			px := s.grid.ToPixels(step)
			cand.Width = math.Max(0, cand.Width+sign*px)
			cand.Height = math.Max(0, cand.Height+sign*px)
		} else {
			cand.Distance = s.clampDistance(cand.Distance + sign*step)
		}

	default:
		return
	}

	if s.tracking() {
		c := s.target.Center()
		cand.X, cand.Y = c.X, c.Y
	}
	s.apply(cand)
}

// apply validates cand and commits it, or reports why it was rejected.
func (s *Session) apply(cand State) {
	if err := s.evaluate(cand); err != nil {
		prev := s.State()
		s.logger.Debug("crosshair placement rejected", "session", s.id, "reason", err)
		s.callbacks.fire(HookInvalidPlacement, prev, err)
		return
	}

	s.mu.Lock()
	s.state = cand
	s.valid = true
	s.mu.Unlock()

	s.render(cand)
	s.callbacks.fire(HookMove, cand, nil)
}

func (s *Session) evaluate(cand State) error {
	region, err := geometry.BuildRegion(cand.Shape, s.grid)
	if err != nil {
		return err
	}

	ctx := placement.Context{
		Grid:   s.grid,
		Region: region,
		Walls:  s.walls,
		Bounds: s.bounds,
	}
	if s.target != nil {
		c := s.target.Center()
		ctx.Anchor = &c
	}
	s.mu.Lock()
	if s.phase == PhaseActive {
		prev := s.state.Origin()
		ctx.Previous = &prev
	}
	s.mu.Unlock()

	return s.constraints.Evaluate(cand.Shape, ctx)
}

func (s *Session) confirm() {
	s.mu.Lock()
	if s.phase != PhaseActive || !s.valid {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseResolved
	final := s.state
	s.result = &final
	s.mu.Unlock()

	s.logger.Debug("crosshair confirmed", "session", s.id, "x", final.X, "y", final.Y)
	defer s.end()
	s.callbacks.fire(HookConfirm, final, nil)
}

func (s *Session) cancel() {
	s.mu.Lock()
	if s.phase != PhaseActive {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseCancelled
	last := s.state
	s.mu.Unlock()

	s.logger.Debug("crosshair cancelled", "session", s.id)
	defer s.end()
	s.callbacks.fire(HookCancel, last, nil)
}

// abort ends the session after a panic in a callback.
func (s *Session) abort() {
	s.mu.Lock()
	if !s.phase.Terminal() {
		s.phase = PhaseCancelled
		s.result = nil
	}
	s.mu.Unlock()
	s.end()
}

// end restores the target and settles Wait. It runs once per session.
func (s *Session) end() {
	s.endOnce.Do(func() {
		defer close(s.done)
		if s.target != nil && s.wasControlled {
			s.target.Control()
		}
	})
}

func (s *Session) render(st State) {
	if s.renderer != nil {
		s.renderer.Render(st)
	}
}

func (s *Session) tracking() bool {
	return s.target != nil && s.cfg.Location.Track
}

func (s *Session) clampDistance(d float64) float64 {
	if d < 0 {
		d = 0
	}
	if s.cfg.DistanceMin > 0 && d < s.cfg.DistanceMin {
		d = s.cfg.DistanceMin
	}
	if s.cfg.DistanceMax > 0 && d > s.cfg.DistanceMax {
		d = s.cfg.DistanceMax
	}
	return d
}

// aims reports whether a kind has a direction that can follow the pointer.
func aims(k geometry.Kind) bool {
	return k == geometry.KindCone || k == geometry.KindRay
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
