package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/jrsteele09/go-notes-mcp/internal/errors"
	"github.com/jrsteele09/go-notes-mcp/ratelimit"
	"github.com/rs/zerolog/log"
)

const queueSize = 32

type call struct {
	ctx      context.Context
	req      Request
	done     chan Response // handler complete
	flushed  chan struct{} // transport wrote the response
	flushOne sync.Once
}

// Pending is a submitted request. The transport waits for the result,
// writes it, then calls Flushed so the actor can start the next request.
type Pending struct {
	call  *call
	actor *Actor
}

// Wait blocks until the handler has produced a response.
func (p *Pending) Wait(ctx context.Context) (Response, error) {
	select {
	case resp := <-p.call.done:
		return resp, nil
	case <-p.actor.done:
		select {
		case resp := <-p.call.done:
			return resp, nil
		default:
			return Response{}, apperrors.SessionNotFound()
		}
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Flushed signals that the response bytes have been written.
func (p *Pending) Flushed() {
	p.call.flushOne.Do(func() { close(p.call.flushed) })
}

// Actor serializes the requests of one session.
type Actor struct {
	id        string
	userID    string
	createdAt time.Time
	timeout   time.Duration

	activeMu   sync.Mutex
	lastActive time.Time // carries a monotonic reading, only moves forward
	state      atomic.Int32

	limiter ratelimit.Limiter
	quota   QuotaChecker
	handler Handler
	nowFunc func() time.Time

	queue      chan *call
	timer      *time.Timer
	timerFired chan struct{}
	closeReq   chan struct{}
	closeOnce  sync.Once
	done       chan struct{}
	onExit     func(*Actor)
}

type actorConfig struct {
	id, userID string
	timeout    time.Duration
	limiter    ratelimit.Limiter
	quota      QuotaChecker
	handler    Handler
	nowFunc    func() time.Time
	onExit     func(*Actor)
}

func newActor(cfg actorConfig) *Actor {
	now := cfg.nowFunc()
	a := &Actor{
		id:         cfg.id,
		userID:     cfg.userID,
		createdAt:  now,
		timeout:    cfg.timeout,
		limiter:    cfg.limiter,
		quota:      cfg.quota,
		handler:    cfg.handler,
		nowFunc:    cfg.nowFunc,
		queue:      make(chan *call, queueSize),
		timerFired: make(chan struct{}, 1),
		closeReq:   make(chan struct{}),
		done:       make(chan struct{}),
		onExit:     cfg.onExit,
	}
	a.lastActive = now
	a.state.Store(int32(StateCreated))
	a.timer = time.AfterFunc(a.timeout, a.onTimer)

	go a.run()
	return a
}

func (a *Actor) ID() string {
	return a.id
}

func (a *Actor) UserID() string {
	return a.userID
}

func (a *Actor) State() State {
	return State(a.state.Load())
}

// Done is closed once the session has expired.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

func (a *Actor) Info() Info {
	return Info{
		ID:           a.id,
		UserID:       a.userID,
		CreatedAt:    a.createdAt,
		LastActiveAt: a.lastActiveAt(),
		State:        a.State(),
	}
}

// Submit queues a request behind any request already in flight.
func (a *Actor) Submit(ctx context.Context, req Request) (*Pending, error) {
	c := &call{
		ctx:     ctx,
		req:     req,
		done:    make(chan Response, 1),
		flushed: make(chan struct{}),
	}

	select {
	case <-a.done:
		return nil, apperrors.SessionNotFound()
	default:
	}

	select {
	case a.queue <- c:
		return &Pending{call: c, actor: a}, nil
	case <-a.done:
		return nil, apperrors.SessionNotFound()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close expires the session. Safe to call more than once.
func (a *Actor) Close() {
	a.closeOnce.Do(func() { close(a.closeReq) })
}

func (a *Actor) onTimer() {
	select {
	case a.timerFired <- struct{}{}:
	default:
	}
}

func (a *Actor) run() {
	reason := "closed"
	defer func() { a.teardown(reason) }()

	for {
		select {
		case <-a.closeReq:
			return
		case <-a.timerFired:
			// A request may have re-armed the timer after it fired, or the
			// clock stepped back. Either way the timer must stay armed.
			if idle := a.nowFunc().Sub(a.lastActiveAt()); idle < a.timeout {
				remaining := a.timeout - idle
				if remaining > a.timeout {
					remaining = a.timeout
				}
				a.timer.Reset(remaining)
				continue
			}
			reason = "inactivity"
			return
		case c := <-a.queue:
			a.process(c)
		}
	}
}

func (a *Actor) process(c *call) {
	a.state.Store(int32(StateActive))
	a.touch()

	resp := a.execute(c)
	c.done <- resp

	if !c.req.IsNotification() {
		select {
		case <-c.flushed:
		case <-c.ctx.Done():
		case <-a.closeReq:
		}
	}

	a.touch()
	a.state.Store(int32(StateIdle))
}

// execute runs the gates then the handler. A panic in the handler is
// reported as an internal error and does not kill the session.
func (a *Actor) execute(c *call) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("session", shortID(a.id)).Str("method", c.req.Method).Interface("panic", r).Msg("handler panic")
			resp = Response{Err: apperrors.Internal(fmt.Errorf("panic: %v", r))}
		}
	}()

	if c.req.IsNotification() {
		return Response{}
	}

	decision, err := a.limiter.Allow(c.ctx, a.userID)
	if err != nil {
		return Response{Err: apperrors.Internal(fmt.Errorf("rate limiter: %w", err))}
	}
	if !decision.Allowed {
		return Response{Err: apperrors.RateLimited(decision.RetryAfter)}
	}

	if a.quota != nil {
		w, grows, err := a.handler.PlannedWrite(c.ctx, a.userID, c.req)
		if err != nil {
			return Response{Err: apperrors.Internal(fmt.Errorf("planning write: %w", err))}
		}
		if grows {
			if err := a.quota.Check(c.ctx, a.userID, w); err != nil {
				return Response{Err: err}
			}
		}
	}

	result, err := a.handler.Handle(c.ctx, a.Info(), c.req)
	return Response{Result: result, Err: err}
}

// touch records activity and re-arms the one inactivity timer.
func (a *Actor) touch() {
	now := a.nowFunc()
	a.activeMu.Lock()
	if now.After(a.lastActive) {
		a.lastActive = now
	}
	a.activeMu.Unlock()
	a.timer.Reset(a.timeout)
}

func (a *Actor) lastActiveAt() time.Time {
	a.activeMu.Lock()
	defer a.activeMu.Unlock()
	return a.lastActive
}

func (a *Actor) teardown(reason string) {
	a.state.Store(int32(StateExpired))
	a.timer.Stop()
	close(a.done)

	if a.onExit != nil {
		a.onExit(a)
	}

	// Requests queued behind the last one will never run.
	for {
		select {
		case c := <-a.queue:
			c.done <- Response{Err: apperrors.SessionNotFound()}
		default:
			log.Debug().Str("session", shortID(a.id)).Str("reason", reason).Msg("session expired")
			return
		}
	}
}

// shortID keeps session ids out of logs in full.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
