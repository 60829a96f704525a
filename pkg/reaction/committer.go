package reaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	fgerrors "github.com/ripixel/fitglue-community/pkg/errors"
)

// DefaultDelay is how long a toggle must stay untouched before it is written.
const DefaultDelay = 2 * time.Second

// Saver persists a reaction. Re-sending the stored value must be a no-op
// that reports changed=false.
type Saver interface {
	SaveReaction(ctx context.Context, postID, actorID string, value social.ReactionValue) (changed bool, err error)
}

// ErrorHandler receives failures the committer cannot return to a caller.
type ErrorHandler func(err error)

// Timer is the subset of *time.Timer the committer needs.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Phase is the committer's position in its Idle -> Pending -> Committing cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseCommitting:
		return "committing"
	}
	return "unknown"
}

// Snapshot is a consistent view of a committer.
type Snapshot struct {
	State
	ServerCount int64
	Phase       Phase
}

// Count is the optimistic count to display.
func (s Snapshot) Count() int64 {
	return OptimisticCount(s.ServerCount, s.State)
}

// Options configures a Committer.
type Options struct {
	Delay   time.Duration
	Clock   Clock
	OnError ErrorHandler
	// OnCommit runs after every successful write, outside the committer's lock.
	OnCommit func(value social.ReactionValue, changed bool)
	Logger   *slog.Logger
}

// Committer debounces one actor's reaction to one post.
//
// At most one write is in flight. Toggles during a write only move the local
// intent and restart the quiet-period timer; if that timer fires before the
// write settles the committer remembers it and writes the newest intent as
// soon as the first write returns.
type Committer struct {
	ctx      context.Context
	saver    Saver
	postID   string
	actorID  string
	delay    time.Duration
	clock    Clock
	onError  ErrorHandler
	onCommit func(social.ReactionValue, bool)
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	serverCount int64
	phase       Phase
	inflight    bool // value of the write in flight, valid while committing
	timer       Timer
	gen         uint64
	rearm       bool
	closed      bool
	settled     chan struct{}
}

// NewCommitter seeds a committer from the store's view of the reaction.
// Writes run with ctx.
func NewCommitter(ctx context.Context, saver Saver, postID, actorID string, serverValue bool, serverCount int64, opts Options) *Committer {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Committer{
		ctx:         ctx,
		saver:       saver,
		postID:      postID,
		actorID:     actorID,
		delay:       opts.Delay,
		clock:       opts.Clock,
		onError:     opts.OnError,
		onCommit:    opts.OnCommit,
		logger:      logger.With("component", "reaction_committer", "post_id", postID, "actor_id", actorID),
		state:       State{ServerValue: serverValue, LocalValue: serverValue},
		serverCount: serverCount,
		settled:     make(chan struct{}),
	}
	close(c.settled)
	return c
}

// Snapshot returns the current state.
func (c *Committer) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Toggle flips the local value.
func (c *Committer) Toggle() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(!c.state.LocalValue)
}

// Set moves the local value to liked.
func (c *Committer) Set(liked bool) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(liked)
}

// Reconcile replaces the server baseline with freshly loaded data.
// The local intent is kept; a pending commit is re-evaluated against the new baseline.
func (c *Committer) Reconcile(serverValue bool, serverCount int64) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ServerValue = serverValue
	c.serverCount = serverCount
	if !c.closed && c.phase != PhaseCommitting {
		c.evaluateLocked()
	}
	return c.snapshotLocked()
}

// Wait blocks until the committer is idle or ctx is done.
func (c *Committer) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.phase == PhaseIdle {
			c.mu.Unlock()
			return nil
		}
		ch := c.settled
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels any pending timer. A write already in flight is allowed to
// settle but nothing is written afterwards.
func (c *Committer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	if c.phase == PhasePending {
		c.logger.Debug("Dropping pending reaction on close", "local", c.state.LocalValue)
		c.setPhaseLocked(PhaseIdle)
	}
}

func (c *Committer) setLocked(liked bool) (Snapshot, error) {
	if c.closed {
		return c.snapshotLocked(), fgerrors.ErrCommitterClosed
	}
	c.state.LocalValue = liked
	c.evaluateLocked()
	return c.snapshotLocked(), nil
}

// evaluateLocked decides whether a timer should be running for the current intent.
func (c *Committer) evaluateLocked() {
	target := c.state.ServerValue
	if c.phase == PhaseCommitting {
		target = c.inflight
	}
	if c.state.LocalValue == target {
		c.stopTimerLocked()
		c.rearm = false
		if c.phase == PhasePending {
			c.setPhaseLocked(PhaseIdle)
		}
		return
	}

	c.stopTimerLocked()
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen) })
	if c.phase == PhaseIdle {
		c.setPhaseLocked(PhasePending)
	}
}

func (c *Committer) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Committer) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.phase == PhaseCommitting {
		c.rearm = true
		c.mu.Unlock()
		return
	}
	if c.state.LocalValue == c.state.ServerValue {
		c.setPhaseLocked(PhaseIdle)
		c.mu.Unlock()
		return
	}
	c.commitLocked()
}

// commitLocked writes the local intent, repeating while a rearmed intent is
// still outstanding. Called with mu held; returns with mu released.
func (c *Committer) commitLocked() {
	for {
		value := c.state.LocalValue
		c.inflight = value
		c.setPhaseLocked(PhaseCommitting)
		c.mu.Unlock()

		rv := social.ReactionFromBool(value)
		changed, err := c.saver.SaveReaction(c.ctx, c.postID, c.actorID, rv)

		c.mu.Lock()
		var failure error
		if err != nil {
			failure = fgerrors.ErrWriteFailed.WithCause(err).
				WithMetadata("post_id", c.postID).
				WithMetadata("value", string(rv))
			c.logger.Warn("Reaction commit failed", "value", rv, "error", err)
		} else {
			c.serverCount += Delta(State{ServerValue: c.state.ServerValue, LocalValue: value})
			c.state.ServerValue = value
			c.logger.Debug("Reaction committed", "value", rv, "changed", changed)
		}

		onError, onCommit := c.onError, c.onCommit
		c.mu.Unlock()
		if failure != nil && onError != nil {
			onError(failure)
		}
		if failure == nil && onCommit != nil {
			onCommit(rv, changed)
		}
		c.mu.Lock()

		again := c.rearm && !c.closed && c.state.LocalValue != c.state.ServerValue
		c.rearm = false
		switch {
		case again:
			c.stopTimerLocked()
		case c.timer != nil && !c.closed:
			c.setPhaseLocked(PhasePending)
		default:
			c.setPhaseLocked(PhaseIdle)
		}
		if !again {
			c.mu.Unlock()
			return
		}
	}
}

func (c *Committer) setPhaseLocked(p Phase) {
	if c.phase == p {
		return
	}
	wasIdle := c.phase == PhaseIdle
	c.phase = p
	switch {
	case wasIdle:
		c.settled = make(chan struct{})
	case p == PhaseIdle:
		close(c.settled)
	}
}

func (c *Committer) snapshotLocked() Snapshot {
	return Snapshot{State: c.state, ServerCount: c.serverCount, Phase: c.phase}
}
