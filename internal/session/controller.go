package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exam-session-service/internal/domain"
	"github.com/rs/zerolog"
)

// Config describes a session at creation time.
type Config struct {
	ID              string
	ExamID          string
	Questions       []domain.Question
	DurationSeconds int
	Clock           Clock
	Policy          Policy
	Logger          zerolog.Logger
	Now             func() time.Time
}

// Controller owns one session. A single goroutine consumes dispatched events
// and clock ticks, running each to completion before taking the next.
type Controller struct {
	id        string
	examID    string
	questions []domain.Question
	duration  int
	clock     Clock
	ledger    *Ledger
	monitor   *Monitor
	log       zerolog.Logger
	now       func() time.Time

	// owned by the run goroutine
	remaining int
	current   int
	status    domain.Status

	inbox     chan envelope
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	closed   bool
	last     domain.View
	final    *domain.SessionResult
	results  map[chan domain.SessionResult]struct{}
	watchers map[chan domain.View]struct{}
}

type envelope struct {
	event domain.Event
	query func()
	reply chan reply
}

type reply struct {
	view domain.View
	err  error
}

// New validates the question set, starts the clock and the event loop.
func New(cfg Config) (*Controller, error) {
	if err := domain.ValidateQuestionSet(cfg.Questions, cfg.DurationSeconds); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = NewTickerClock(time.Second)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	questions := make([]domain.Question, len(cfg.Questions))
	copy(questions, cfg.Questions)

	c := &Controller{
		id:        cfg.ID,
		examID:    cfg.ExamID,
		questions: questions,
		duration:  cfg.DurationSeconds,
		clock:     cfg.Clock,
		ledger:    NewLedger(questions),
		monitor:   NewMonitor(cfg.Policy),
		log:       cfg.Logger.With().Str("component", "session").Str("session_id", cfg.ID).Logger(),
		now:       cfg.Now,
		remaining: cfg.DurationSeconds,
		status:    domain.StatusActive,
		inbox:     make(chan envelope),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		results:   make(map[chan domain.SessionResult]struct{}),
		watchers:  make(map[chan domain.View]struct{}),
	}
	c.monitor.now = cfg.Now
	c.last = c.viewLocked("")

	c.clock.Start(cfg.DurationSeconds)
	go c.run()

	c.log.Info().Int("questions", len(questions)).Int("duration_seconds", cfg.DurationSeconds).Msg("session started")
	return c, nil
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) ExamID() string { return c.examID }

// Questions returns a copy of the ordered question list.
func (c *Controller) Questions() []domain.Question {
	out := make([]domain.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Dispatch enqueues an event and waits for it to be processed.
// Events arriving after the session left Active return the current view and no error.
func (c *Controller) Dispatch(ctx context.Context, event domain.Event) (domain.View, error) {
	return c.send(ctx, envelope{event: event, reply: make(chan reply, 1)})
}

// Overview returns the navigator grid, read through the event loop.
func (c *Controller) Overview(ctx context.Context) (domain.Overview, error) {
	var ov domain.Overview
	_, err := c.send(ctx, envelope{
		query: func() { ov = BuildOverview(c.questions, c.ledger, c.current, c.remaining) },
		reply: make(chan reply, 1),
	})
	return ov, err
}

func (c *Controller) send(ctx context.Context, env envelope) (domain.View, error) {
	select {
	case c.inbox <- env:
	case <-c.done:
		return domain.View{}, domain.ErrUnknownSession
	case <-ctx.Done():
		return domain.View{}, ctx.Err()
	}

	select {
	case r := <-env.reply:
		return r.view, r.err
	case <-ctx.Done():
		return domain.View{}, ctx.Err()
	}
}

// View returns the most recently published view without going through the loop.
func (c *Controller) View() domain.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Subscribe returns a channel that receives the terminal result exactly once and is then closed.
// The caller must invoke cancel if it stops listening early.
func (c *Controller) Subscribe() (<-chan domain.SessionResult, func()) {
	ch := make(chan domain.SessionResult, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.final != nil || c.closed {
		if c.final != nil {
			ch <- cloneResult(*c.final)
		}
		close(ch)
		return ch, func() {}
	}
	c.results[ch] = struct{}{}

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.results[ch]; ok {
			delete(c.results, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Watch streams views after every state change, starting with the current one.
// Slow readers only ever miss stale views.
func (c *Controller) Watch() (<-chan domain.View, func()) {
	ch := make(chan domain.View, 8)

	c.mu.Lock()
	ch <- c.last
	if c.closed {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.watchers[ch]; ok {
			delete(c.watchers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Done is closed once the event loop has exited.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Close stops the event loop and the clock. Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
}

func (c *Controller) run() {
	defer close(c.done)
	defer c.closeSubscribers()

	ticks := c.clock.Ticks()
	for {
		if c.status != domain.StatusActive {
			ticks = nil
		}
		select {
		case env := <-c.inbox:
			c.handle(env)
		case t := <-ticks:
			before := c.viewLocked("")
			c.applyTick(t)
			c.publishView(before, c.viewLocked(""))
		case <-c.quit:
			c.clock.Stop()
			c.monitor.Close()
			c.log.Debug().Str("status", string(c.status)).Msg("session closed")
			return
		}
	}
}

func (c *Controller) handle(env envelope) {
	if env.query != nil {
		env.query()
		env.reply <- reply{view: c.viewLocked("")}
		return
	}

	before := c.viewLocked("")
	warning, err := c.apply(env.event)
	after := c.viewLocked(warning)
	c.publishView(before, after)
	env.reply <- reply{view: after, err: err}
}

func (c *Controller) apply(event domain.Event) (string, error) {
	if c.status != domain.StatusActive {
		if v, ok := event.(domain.ViolationSignal); ok {
			c.monitor.Observe(v.Signal)
			c.log.Debug().Str("kind", string(v.Signal.Kind)).Str("detail", v.Signal.Detail).Msg("late violation signal ignored")
		}
		return "", nil
	}

	n := len(c.questions)
	switch e := event.(type) {
	case domain.NavigateTo:
		c.current = Clamp(e.Index, n)
	case domain.NextQuestion:
		c.current = Next(c.current, n)
	case domain.PrevQuestion:
		c.current = Prev(c.current, n)
	case domain.SetAnswer:
		return "", c.ledger.SetAnswer(e.QuestionID, e.Text)
	case domain.ToggleFlag:
		_, err := c.ledger.ToggleFlag(e.QuestionID)
		return "", err
	case domain.ClockTick:
		c.applyTick(domain.Tick{Remaining: e.Remaining, Expired: e.Remaining <= 0})
	case domain.ClockExpired:
		c.applyTick(domain.Tick{Remaining: 0, Expired: true})
	case domain.ViolationSignal:
		return c.observe(e.Signal), nil
	case domain.ManualSubmit:
		c.submit(domain.ReasonManual)
	default:
		return "", fmt.Errorf("%w: %T", domain.ErrUnsupportedEvent, event)
	}
	return "", nil
}

func (c *Controller) applyTick(t domain.Tick) {
	if c.status != domain.StatusActive {
		return
	}
	remaining := t.Remaining
	if remaining < 0 {
		remaining = 0
	}
	if remaining < c.remaining {
		c.remaining = remaining
	}
	if t.Expired || c.remaining == 0 {
		c.remaining = 0
		c.submit(domain.ReasonTimeout)
	}
}

func (c *Controller) observe(signal domain.Signal) string {
	decision, record, _ := c.monitor.Observe(signal)
	c.log.Warn().
		Int("seq", record.Seq).
		Str("kind", string(record.Kind)).
		Str("detail", record.Detail).
		Str("decision", decision.String()).
		Msg("violation recorded")
	if decision == ForceTerminate {
		c.submit(domain.ReasonViolationLimit)
	}
	return Warning(signal.Kind)
}

// submit runs the Submitting entry action. Only the first call while Active has any effect.
func (c *Controller) submit(reason domain.TerminationReason) {
	if c.status != domain.StatusActive {
		return
	}
	c.status = domain.StatusSubmitting

	c.clock.Stop()
	c.monitor.Close()
	answers, flagged := c.ledger.Snapshot()

	result := domain.SessionResult{
		SessionID:             c.id,
		ExamID:                c.examID,
		Reason:                reason,
		Answers:               answers,
		Flagged:               flagged,
		ViolationLog:          c.monitor.Log(),
		FinalRemainingSeconds: c.remaining,
		SubmittedAt:           c.now(),
	}

	c.status = domain.StatusSubmitted

	c.mu.Lock()
	c.final = &result
	for ch := range c.results {
		ch <- cloneResult(result)
		close(ch)
		delete(c.results, ch)
	}
	c.mu.Unlock()

	c.log.Info().
		Str("reason", string(reason)).
		Int("answered", len(answers)).
		Int("flagged", len(flagged)).
		Int("violations", len(result.ViolationLog)).
		Int("remaining_seconds", c.remaining).
		Msg("session submitted")
}

func (c *Controller) viewLocked(warning string) domain.View {
	return domain.View{
		SessionID:        c.id,
		CurrentIndex:     c.current,
		RemainingSeconds: c.remaining,
		Status:           c.status,
		Violations:       c.monitor.Count(),
		Warning:          warning,
	}
}

func (c *Controller) publishView(before, after domain.View) {
	changed := after.Warning != "" || before != after
	after.Warning = ""

	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = after
	if !changed {
		return
	}
	for ch := range c.watchers {
		select {
		case ch <- after:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- after
		}
	}
}

// closeSubscribers releases every listener. Result channels of a session closed
// before submission are closed without a value.
func (c *Controller) closeSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for ch := range c.watchers {
		delete(c.watchers, ch)
		close(ch)
	}
	for ch := range c.results {
		delete(c.results, ch)
		close(ch)
	}
}

func cloneResult(r domain.SessionResult) domain.SessionResult {
	answers := make(map[string]string, len(r.Answers))
	for k, v := range r.Answers {
		answers[k] = v
	}
	r.Answers = answers
	r.Flagged = append([]string(nil), r.Flagged...)
	r.ViolationLog = append([]domain.ViolationRecord(nil), r.ViolationLog...)
	return r
}
