package transition

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler records timers; tests fire them explicitly.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every timer that was not stopped, and also the stopped ones when
// force is set, as a late timer callback would.
func (s *manualScheduler) fire(force bool) {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if force || !t.stopped {
			t.fn()
		}
	}
}

type fakeAnimation struct {
	activated int
	listeners []func()
	removed   int
}

func (a *fakeAnimation) MarkActivated() { a.activated++ }

func (a *fakeAnimation) OnAnimationEnd(fn func()) func() {
	a.listeners = append(a.listeners, fn)
	return func() { a.removed++ }
}

func (a *fakeAnimation) end() {
	for _, fn := range a.listeners {
		fn()
	}
}

type fakeCard struct {
	route string
	anim  *fakeAnimation
}

func (c fakeCard) Route() string { return c.route }

func (c fakeCard) ExitAnimation() (AnimationSource, bool) {
	if c.anim == nil {
		return nil, false
	}
	return c.anim, true
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(_ context.Context, route string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
	return nil
}

func (n *recordingNavigator) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.routes...)
}

func newController(t *testing.T, opts ...Option) (*Controller, *recordingNavigator, *manualScheduler) {
	t.Helper()
	nav := &recordingNavigator{}
	sched := &manualScheduler{}
	opts = append([]Option{WithScheduler(sched)}, opts...)
	return New(nav, opts...), nav, sched
}

func TestMissingElementNavigatesSynchronously(t *testing.T) {
	ctrl, nav, sched := newController(t)

	require.True(t, ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/site-a"}))

	require.Equal(t, []string{"/all-works/site-a"}, nav.calls())
	require.Equal(t, StateFired, ctrl.State())
	require.Len(t, sched.timers, 1)
	require.True(t, sched.timers[0].stopped, "fallback timer must be cancelled")

	sched.fire(true)
	require.Len(t, nav.calls(), 1)
}

func TestDoubleClickNavigatesOnce(t *testing.T) {
	ctrl, nav, sched := newController(t)
	anim := &fakeAnimation{}
	card := fakeCard{route: "/all-works/site-b", anim: anim}

	require.True(t, ctrl.OnClick(context.Background(), card))
	require.False(t, ctrl.OnClick(context.Background(), card))
	require.Equal(t, 1, anim.activated)
	require.Len(t, anim.listeners, 1)
	require.Len(t, sched.timers, 1)

	anim.end()
	require.False(t, ctrl.OnClick(context.Background(), card))
	require.Equal(t, []string{"/all-works/site-b"}, nav.calls())
}

func TestAnimationEndCancelsTimer(t *testing.T) {
	ctrl, nav, sched := newController(t)
	anim := &fakeAnimation{}

	ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/site-c", anim: anim})
	require.Equal(t, StateArmed, ctrl.State())
	require.Empty(t, nav.calls())

	anim.end()
	require.Equal(t, StateFired, ctrl.State())
	require.True(t, sched.timers[0].stopped)
	require.Equal(t, 1, anim.removed)

	sched.fire(true)
	anim.end()
	require.Equal(t, []string{"/all-works/site-c"}, nav.calls())
}

func TestTimeoutCompletesAndRemovesListener(t *testing.T) {
	ctrl, nav, sched := newController(t, WithTimeout(2*time.Second))
	anim := &fakeAnimation{}

	ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/site-d", anim: anim})
	require.Equal(t, 2*time.Second, sched.timers[0].delay)

	sched.fire(false)
	require.Equal(t, []string{"/all-works/site-d"}, nav.calls())
	require.Equal(t, 1, anim.removed)

	anim.end()
	require.Len(t, nav.calls(), 1)
}

func TestDefaultTimeout(t *testing.T) {
	ctrl, _, sched := newController(t, WithTimeout(0))
	ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/x", anim: &fakeAnimation{}})
	require.Equal(t, DefaultTimeout, sched.timers[0].delay)
}

func TestTeardownCancelsPendingNavigation(t *testing.T) {
	ctrl, nav, sched := newController(t)
	anim := &fakeAnimation{}

	ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/site-e", anim: anim})
	ctrl.Teardown()

	require.Equal(t, StateDisposed, ctrl.State())
	require.True(t, sched.timers[0].stopped)
	require.Equal(t, 1, anim.removed)

	sched.fire(true)
	anim.end()
	require.Empty(t, nav.calls())
	require.False(t, ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/site-e"}))
}

func TestTeardownWhileIdle(t *testing.T) {
	ctrl, nav, _ := newController(t)
	ctrl.Teardown()

	require.False(t, ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/site-f"}))
	require.Empty(t, nav.calls())
}

// syncAnimation ends as soon as a listener is registered.
type syncAnimation struct{ fakeAnimation }

func (a *syncAnimation) OnAnimationEnd(fn func()) func() {
	cancel := a.fakeAnimation.OnAnimationEnd(fn)
	fn()
	return cancel
}

func TestListenerFiringDuringRegistration(t *testing.T) {
	nav := &recordingNavigator{}
	sched := &manualScheduler{}
	ctrl := New(nav, WithScheduler(sched))
	anim := &syncAnimation{}

	ctrl.OnClick(context.Background(), syncCard{anim: anim})

	require.Equal(t, []string{"/all-works/sync"}, nav.calls())
	require.Equal(t, 1, anim.removed)
	require.True(t, sched.timers[0].stopped)
}

type syncCard struct{ anim *syncAnimation }

func (syncCard) Route() string { return "/all-works/sync" }

func (c syncCard) ExitAnimation() (AnimationSource, bool) { return c.anim, true }

func TestConcurrentTriggersNavigateOnce(t *testing.T) {
	for range 50 {
		ctrl, nav, sched := newController(t)
		anim := &fakeAnimation{}
		ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/race", anim: anim})

		listener := anim.listeners[0]
		timer := sched.timers[0].fn
		var wg sync.WaitGroup
		for _, fn := range []func(){listener, timer, listener, timer} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn()
			}()
		}
		wg.Wait()

		require.Len(t, nav.calls(), 1)
	}
}

func TestSystemSchedulerFires(t *testing.T) {
	done := make(chan string, 2)
	ctrl := New(NavigatorFunc(func(_ context.Context, route string) error {
		done <- route
		return nil
	}), WithTimeout(10*time.Millisecond))

	ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/real", anim: &fakeAnimation{}})

	select {
	case route := <-done:
		require.Equal(t, "/all-works/real", route)
	case <-time.After(2 * time.Second):
		t.Fatal("fallback timer did not navigate")
	}
}

func TestCompletedMetricByTrigger(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics := NewMetrics(provider.Meter("test"), nil)

	ctrl, _, _ := newController(t, WithMetrics(metrics))
	ctrl.OnClick(context.Background(), fakeCard{route: "/all-works/m"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Equal(t, "works.navigation.completed", rm.ScopeMetrics[0].Metrics[0].Name)

	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	require.EqualValues(t, 1, sum.DataPoints[0].Value)
	trigger, _ := sum.DataPoints[0].Attributes.Value("trigger")
	require.Equal(t, "missing_element", trigger.AsString())
}

func TestStateStrings(t *testing.T) {
	require.Equal(t, "armed", StateArmed.String())
	require.Equal(t, "timeout", TriggerTimeout.String())
}
