package crosshair

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/inamate/crosshair/internal/geometry"
	"github.com/inamate/crosshair/internal/placement"
)

type fakeTarget struct {
	x, y, size float64
	controlled bool
	releases   int
	controls   int
}

func (f *fakeTarget) ID() string               { return "obj_test" }
func (f *fakeTarget) Position() geometry.Point { return geometry.Point{X: f.x, Y: f.y} }
func (f *fakeTarget) Center() geometry.Point {
	return geometry.Point{X: f.x + f.size/2, Y: f.y + f.size/2}
}
func (f *fakeTarget) Controlled() bool { return f.controlled }
func (f *fakeTarget) Release()         { f.controlled = false; f.releases++ }
func (f *fakeTarget) Control()         { f.controlled = true; f.controls++ }

// recorder counts hook invocations.
type recorder struct {
	calls   map[Hook]int
	reasons []error
	last    State
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[Hook]int)}
}

func (r *recorder) callbacks() Callbacks {
	var cb Callbacks
	for _, h := range []Hook{HookShow, HookMove, HookConfirm, HookCancel, HookInvalidPlacement} {
		cb = cb.On(h, func(st State, reason error) {
			r.calls[h]++
			r.last = st
			if reason != nil {
				r.reasons = append(r.reasons, reason)
			}
		})
	}
	return cb
}

func testOptions(r *recorder, constraints ...placement.Constraint) Options {
	return Options{
		Grid:        geometry.Grid{Size: 100, Distance: 5},
		Callbacks:   r.callbacks(),
		Constraints: constraints,
	}
}

func TestShowUnsupportedKindFailsBeforeCallbacks(t *testing.T) {
	r := newRecorder()
	target := &fakeTarget{controlled: true}

	s, err := ShowTarget(target, Config{Kind: "hexagon"}, testOptions(r))
	if !errors.Is(err, geometry.ErrUnsupportedShapeKind) {
		t.Fatalf("err = %v, want ErrUnsupportedShapeKind", err)
	}
	if s != nil {
		t.Fatal("expected no session")
	}
	if len(r.calls) != 0 {
		t.Fatalf("callbacks fired: %v", r.calls)
	}
	if target.releases != 0 {
		t.Fatal("target must not be released when show fails")
	}
}

func TestShowFiresOnShowAndBecomesActive(t *testing.T) {
	r := newRecorder()
	var rendered []State
	opts := testOptions(r)
	opts.Renderer = RendererFunc(func(st State) { rendered = append(rendered, st) })

	s, err := Show(Config{}, opts)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if s.Phase() != PhaseActive {
		t.Fatalf("phase = %v, want active", s.Phase())
	}
	if r.calls[HookShow] != 1 {
		t.Fatalf("onShow calls = %d, want 1", r.calls[HookShow])
	}
	if len(rendered) != 1 {
		t.Fatalf("renders = %d, want 1", len(rendered))
	}
	if s.State().Kind != geometry.KindCircle {
		t.Fatalf("kind = %q, want circle", s.State().Kind)
	}
}

func TestRejectedTickKeepsStateAndReportsOnce(t *testing.T) {
	r := newRecorder()
	nonNegative := placement.New("non_negative_x", func(c geometry.Shape, _ placement.Context) bool {
		return c.X >= 0
	})

	s, err := Show(Config{X: Float(10), Y: Float(10)}, testOptions(r, nonNegative))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	before := s.State()

	s.Handle(PointerMove{X: -5, Y: 10})

	if got := s.State(); got != before {
		t.Fatalf("state changed: %+v -> %+v", before, got)
	}
	if r.calls[HookInvalidPlacement] != 1 {
		t.Fatalf("onInvalidPlacement calls = %d, want 1", r.calls[HookInvalidPlacement])
	}
	if r.calls[HookMove] != 0 {
		t.Fatalf("onMove calls = %d, want 0", r.calls[HookMove])
	}
	if !errors.Is(r.reasons[0], placement.ErrInvalidPlacement) {
		t.Fatalf("reason = %v, want ErrInvalidPlacement", r.reasons[0])
	}

	s.Handle(PointerMove{X: 40, Y: 50})
	if got := s.State(); got.X != 40 || got.Y != 50 {
		t.Fatalf("state = (%v, %v), want (40, 50)", got.X, got.Y)
	}
	if r.calls[HookMove] != 1 {
		t.Fatalf("onMove calls = %d, want 1", r.calls[HookMove])
	}
}

func TestCancelOnlySessionsSettleNil(t *testing.T) {
	for _, ticks := range []int{0, 1, 7} {
		t.Run(fmt.Sprintf("%d ticks", ticks), func(t *testing.T) {
			r := newRecorder()
			s, err := Show(Config{}, testOptions(r))
			if err != nil {
				t.Fatalf("Show: %v", err)
			}
			for i := 0; i < ticks; i++ {
				s.Handle(PointerMove{X: float64(i * 10), Y: 0})
			}
			s.Handle(Key{Name: KeyEscape})

			got, err := s.Wait(context.Background())
			if err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if got != nil {
				t.Fatalf("result = %+v, want nil", got)
			}
			if s.Phase() != PhaseCancelled {
				t.Fatalf("phase = %v, want cancelled", s.Phase())
			}
			if r.calls[HookCancel] != 1 {
				t.Fatalf("onCancel calls = %d, want 1", r.calls[HookCancel])
			}
		})
	}
}

func TestConfirmResolvesWithFinalState(t *testing.T) {
	r := newRecorder()
	s, err := Show(Config{Kind: geometry.KindCone}, testOptions(r))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}

	s.Handle(PointerMove{X: 120, Y: 80})
	s.Handle(PointerDown{Button: ButtonLeft, X: 120, Y: 80})

	got, err := s.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got == nil || got.X != 120 || got.Y != 80 {
		t.Fatalf("result = %+v, want origin (120, 80)", got)
	}
	if r.calls[HookConfirm] != 1 {
		t.Fatalf("onConfirm calls = %d, want 1", r.calls[HookConfirm])
	}
}

func TestTerminalSessionIgnoresInput(t *testing.T) {
	r := newRecorder()
	s, err := Show(Config{}, testOptions(r))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	s.Confirm()
	final := s.State()

	s.Handle(PointerMove{X: 500, Y: 500})
	s.Cancel()
	s.Handle(PointerDown{Button: ButtonRight})

	if s.Phase() != PhaseResolved {
		t.Fatalf("phase = %v, want resolved", s.Phase())
	}
	if s.State() != final {
		t.Fatal("state changed after resolve")
	}
	if r.calls[HookCancel] != 0 || r.calls[HookMove] != 0 {
		t.Fatalf("unexpected callbacks after resolve: %v", r.calls)
	}
}

func TestTargetControlRestored(t *testing.T) {
	tests := []struct {
		name    string
		finish  func(*Session)
		wasCtrl bool
	}{
		{"confirm", (*Session).Confirm, true},
		{"cancel", (*Session).Cancel, true},
		{"right click", func(s *Session) { s.Handle(PointerDown{Button: ButtonRight}) }, true},
		{"not previously controlled", (*Session).Cancel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{x: 100, y: 100, size: 100, controlled: tt.wasCtrl}
			s, err := ShowTarget(target, Config{}, testOptions(newRecorder()))
			if err != nil {
				t.Fatalf("ShowTarget: %v", err)
			}
			if target.controlled {
				t.Fatal("target should be released while the session is active")
			}
			if st := s.State(); st.X != 150 || st.Y != 150 {
				t.Fatalf("origin = (%v, %v), want target center (150, 150)", st.X, st.Y)
			}

			tt.finish(s)
			<-s.Done()

			if target.controlled != tt.wasCtrl {
				t.Fatalf("controlled = %v, want %v", target.controlled, tt.wasCtrl)
			}
			if tt.wasCtrl && target.controls != 1 {
				t.Fatalf("Control calls = %d, want 1", target.controls)
			}
		})
	}
}

func TestWaitContextCancelRestoresTarget(t *testing.T) {
	target := &fakeTarget{controlled: true}
	s, err := ShowTarget(target, Config{}, testOptions(newRecorder()))
	if err != nil {
		t.Fatalf("ShowTarget: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := s.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got != nil {
		t.Fatalf("result = %+v, want nil", got)
	}
	if !target.controlled {
		t.Fatal("target control not restored on teardown")
	}
}

func TestWaitInsideCallbackReturns(t *testing.T) {
	target := &fakeTarget{controlled: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var s *Session
	var waitErr error
	cb := Callbacks{}.On(HookMove, func(State, error) {
		_, waitErr = s.Wait(ctx)
	})
	s, err := ShowTarget(target, Config{}, Options{Grid: geometry.DefaultGrid(), Callbacks: cb})
	if err != nil {
		t.Fatalf("ShowTarget: %v", err)
	}

	s.Handle(PointerMove{X: 10, Y: 10})
	if !errors.Is(waitErr, context.Canceled) {
		t.Fatalf("wait err = %v, want context.Canceled", waitErr)
	}
	if s.Phase() != PhaseCancelled {
		t.Fatalf("phase = %v, want cancelled once the move finished", s.Phase())
	}
	if !target.controlled {
		t.Fatal("target control not restored")
	}
}

func TestPanicInCallbackRestoresTarget(t *testing.T) {
	target := &fakeTarget{controlled: true}
	cb := Callbacks{}.On(HookMove, func(State, error) { panic("boom") })
	s, err := ShowTarget(target, Config{}, Options{Grid: geometry.DefaultGrid(), Callbacks: cb})
	if err != nil {
		t.Fatalf("ShowTarget: %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		s.Handle(PointerMove{X: 1, Y: 1})
	}()

	if s.Phase() != PhaseCancelled {
		t.Fatalf("phase = %v, want cancelled", s.Phase())
	}
	if !target.controlled {
		t.Fatal("target control not restored after panic")
	}
}

func TestConfirmRequiresValidState(t *testing.T) {
	r := newRecorder()
	s, err := Show(Config{X: Float(10), Y: Float(10)}, testOptions(r, placement.GridCenter{}))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if s.Valid() {
		t.Fatal("initial off-grid state should be invalid")
	}

	s.Confirm()
	if s.Phase() != PhaseActive {
		t.Fatalf("phase = %v, want active after rejected confirm", s.Phase())
	}

	s.Handle(PointerMove{X: 150, Y: 250})
	s.Confirm()
	if s.Phase() != PhaseResolved {
		t.Fatalf("phase = %v, want resolved", s.Phase())
	}
}

func TestCallbackCanEndSession(t *testing.T) {
	var s *Session
	cb := Callbacks{}.On(HookMove, func(State, error) { s.Confirm() })

	var err error
	s, err = Show(Config{}, Options{Grid: geometry.DefaultGrid(), Callbacks: cb})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}

	s.Handle(PointerMove{X: 30, Y: 40})
	s.Handle(PointerMove{X: 90, Y: 90})

	got := s.Result()
	if got == nil || got.X != 30 || got.Y != 40 {
		t.Fatalf("result = %+v, want first move", got)
	}
}

func TestSnapPosition(t *testing.T) {
	s, err := Show(Config{Snap: Snap{Position: geometry.SnapCenter}}, testOptions(newRecorder()))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	s.Handle(PointerMove{X: 123, Y: 456})
	if st := s.State(); st.X != 150 || st.Y != 450 {
		t.Fatalf("state = (%v, %v), want (150, 450)", st.X, st.Y)
	}
}

func TestLockDragIgnoresPointer(t *testing.T) {
	r := newRecorder()
	s, err := Show(Config{LockDrag: Bool(true), X: Float(5), Y: Float(5)}, testOptions(r))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	s.Handle(PointerMove{X: 300, Y: 300})
	if st := s.State(); st.X != 5 || st.Y != 5 {
		t.Fatalf("state moved to (%v, %v)", st.X, st.Y)
	}
	if r.calls[HookMove] != 0 {
		t.Fatalf("onMove calls = %d, want 0", r.calls[HookMove])
	}
}

func TestTrackedConeAimsAtPointer(t *testing.T) {
	target := &fakeTarget{x: 0, y: 0, size: 100}
	cfg := Config{Kind: geometry.KindCone, Location: Location{Track: true}, Snap: Snap{Direction: 5}}
	s, err := ShowTarget(target, cfg, testOptions(newRecorder()))
	if err != nil {
		t.Fatalf("ShowTarget: %v", err)
	}

	s.Handle(PointerMove{X: 50, Y: 300})

	st := s.State()
	if st.X != 50 || st.Y != 50 {
		t.Fatalf("origin = (%v, %v), want target center (50, 50)", st.X, st.Y)
	}
	if st.Direction != 90 {
		t.Fatalf("direction = %v, want 90", st.Direction)
	}
}

func TestWheelRotatesAndResizes(t *testing.T) {
	cfg := Config{
		Kind:        geometry.KindRay,
		Distance:    Float(10),
		Snap:        Snap{Direction: 45},
		DistanceMin: 5,
		DistanceMax: 15,
	}
	s, err := Show(cfg, testOptions(newRecorder()))
	if err != nil {
		t.Fatalf("Show: %v", err)
	}

	s.Handle(Wheel{Delta: -1, Mods: ModCtrl})
	if got := s.State().Direction; got != 315 {
		t.Fatalf("direction = %v, want 315", got)
	}

	s.Handle(Wheel{Delta: 1, Mods: ModShift})
	if got := s.State().Distance; got != 15 {
		t.Fatalf("distance = %v, want 15", got)
	}
	s.Handle(Wheel{Delta: 1, Mods: ModShift})
	if got := s.State().Distance; got != 15 {
		t.Fatalf("distance = %v, want clamp at 15", got)
	}
	for i := 0; i < 3; i++ {
		s.Handle(Wheel{Delta: -1, Mods: ModShift})
	}
	if got := s.State().Distance; got != 5 {
		t.Fatalf("distance = %v, want clamp at 5", got)
	}
}

func TestMaxRangeFromLocation(t *testing.T) {
	r := newRecorder()
	target := &fakeTarget{x: 0, y: 0, size: 100}
	s, err := ShowTarget(target, Config{Location: Location{MaxRange: 10}}, testOptions(r))
	if err != nil {
		t.Fatalf("ShowTarget: %v", err)
	}

	// 10 units is 200px on a 100px/5 unit grid.
	s.Handle(PointerMove{X: 250, Y: 50})
	s.Handle(PointerMove{X: 251, Y: 50})

	if st := s.State(); st.X != 250 {
		t.Fatalf("x = %v, want 250", st.X)
	}
	if r.calls[HookInvalidPlacement] != 1 {
		t.Fatalf("onInvalidPlacement calls = %d, want 1", r.calls[HookInvalidPlacement])
	}
}

func TestShowTargetRequiresTarget(t *testing.T) {
	if _, err := ShowTarget(nil, Config{}, Options{}); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("err = %v, want ErrNoTarget", err)
	}
}
