// Package transition turns a click on a works card into exactly one route change.
//
// A card's exit animation, a fallback timer and a missing-element check all race
// to complete the click. The Controller is a small state machine whose single
// Armed to Fired transition decides the winner.
package transition

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultTimeout is the fallback delay before navigation is forced.
const DefaultTimeout = 1500 * time.Millisecond

// State is the lifecycle of one card's navigation intent.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateFired
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	case StateDisposed:
		return "disposed"
	default:
		return "invalid"
	}
}

// Trigger names the signal that completed a navigation.
type Trigger int

const (
	TriggerAnimationEnd Trigger = iota
	TriggerTimeout
	TriggerMissingElement
)

func (t Trigger) String() string {
	switch t {
	case TriggerAnimationEnd:
		return "animation_end"
	case TriggerTimeout:
		return "timeout"
	case TriggerMissingElement:
		return "missing_element"
	default:
		return "unknown"
	}
}

// Navigator performs the route change.
type Navigator interface {
	Navigate(ctx context.Context, route string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, route string) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, route string) error { return f(ctx, route) }

// AnimationSource is the card's animated exit element.
type AnimationSource interface {
	// MarkActivated starts the exit animation.
	MarkActivated()
	// OnAnimationEnd registers fn to run at most once when the animation ends.
	// The returned function removes the listener.
	OnAnimationEnd(fn func()) (cancel func())
}

// Target is the clicked card.
type Target interface {
	Route() string
	// ExitAnimation returns the animated element, or false when it is absent.
	ExitAnimation() (AnimationSource, bool)
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs fn once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemScheduler schedules on the runtime timer.
type SystemScheduler struct{}

// AfterFunc implements Scheduler.
func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Controller owns the navigation intent of a single card instance.
type Controller struct {
	navigator Navigator
	scheduler Scheduler
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *Metrics

	state atomic.Int32

	mu       sync.Mutex
	ctx      context.Context
	route    string
	intent   ulid.ULID
	timer    Timer
	unlisten func()
}

// New returns an idle controller that navigates through navigator.
func New(navigator Navigator, opts ...Option) *Controller {
	o := buildOptions(opts)
	return &Controller{
		navigator: navigator,
		scheduler: o.scheduler,
		timeout:   o.timeout,
		logger:    o.logger,
		metrics:   o.metrics,
		ctx:       context.Background(),
	}
}

// State reports the current state.
func (c *Controller) State() State { return State(c.state.Load()) }

// OnClick arms the controller for target. It reports false when the click was
// ignored because a navigation is already pending, done, or torn down.
func (c *Controller) OnClick(ctx context.Context, target Target) bool {
	if target == nil {
		return false
	}
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateArmed)) {
		c.logger.Debug("transition: click ignored", zap.Stringer("state", c.State()))
		return false
	}

	intent := ulid.Make()
	c.mu.Lock()
	c.ctx = context.WithoutCancel(ctx)
	c.route = target.Route()
	c.intent = intent
	c.mu.Unlock()
	c.logger.Debug("transition: armed", zap.String("intent", intent.String()), zap.String("route", target.Route()))

	anim, present := target.ExitAnimation()
	if present {
		anim.MarkActivated()
		c.track(anim.OnAnimationEnd(func() { c.complete(TriggerAnimationEnd) }), nil)
	}
	c.track(nil, c.scheduler.AfterFunc(c.timeout, func() { c.complete(TriggerTimeout) }))

	if !present {
		c.complete(TriggerMissingElement)
	}
	return true
}

// Teardown disposes the controller. A pending navigation is cancelled and
// never performed.
func (c *Controller) Teardown() {
	prev := State(c.state.Swap(int32(StateDisposed)))
	if prev != StateArmed {
		return
	}
	unlisten, timer := c.takeHandles()
	release(unlisten, timer)
	c.logger.Debug("transition: torn down while armed")
}

// track keeps trigger handles for cancellation, releasing them at once when the
// intent already completed while they were being registered.
func (c *Controller) track(unlisten func(), timer Timer) {
	c.mu.Lock()
	if c.State() == StateArmed {
		if unlisten != nil {
			c.unlisten = unlisten
		}
		if timer != nil {
			c.timer = timer
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	release(unlisten, timer)
}

func (c *Controller) complete(trigger Trigger) bool {
	if !c.state.CompareAndSwap(int32(StateArmed), int32(StateFired)) {
		return false
	}

	c.mu.Lock()
	ctx, route, intent := c.ctx, c.route, c.intent
	c.mu.Unlock()
	release(c.takeHandles())

	c.metrics.completed(ctx, trigger)
	c.logger.Debug("transition: navigating",
		zap.String("intent", intent.String()),
		zap.String("route", route),
		zap.Stringer("trigger", trigger),
	)
	if err := c.navigator.Navigate(ctx, route); err != nil {
		c.logger.Warn("transition: navigation failed", zap.String("route", route), zap.Error(err))
	}
	return true
}

func (c *Controller) takeHandles() (func(), Timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	unlisten, timer := c.unlisten, c.timer
	c.unlisten, c.timer = nil, nil
	return unlisten, timer
}

func release(unlisten func(), timer Timer) {
	if unlisten != nil {
		unlisten()
	}
	if timer != nil {
		timer.Stop()
	}
}
