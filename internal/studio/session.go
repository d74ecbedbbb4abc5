package studio

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"caslastudio/internal/imagegen"
)

// Status is the lifecycle of the most recent submit.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusInFlight  Status = "in_flight"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Sender delivers a payload to the generation service.
type Sender interface {
	Send(ctx context.Context, p imagegen.Payload) (*imagegen.Image, error)
}

type SessionOptions struct {
	ID        string
	Sender    Sender
	Builder   Builder
	Resources *ResourceStore
	Logger    zerolog.Logger
}

// Session owns one user's selections and the result of their last submit.
// At most one submit is in flight at a time.
type Session struct {
	id        string
	sender    Sender
	builder   Builder
	resources *ResourceStore
	logger    zerolog.Logger

	mu        sync.Mutex
	state     State
	status    Status
	result    *Handle
	preview   *Handle
	lastErr   error
	attempt   *Attempt
	closed    bool
	createdAt time.Time
	touchedAt time.Time
}

func NewSession(opts SessionOptions) *Session {
	resources := opts.Resources
	if resources == nil {
		resources = NewResourceStore()
	}
	now := time.Now().UTC()
	return &Session{
		id:        opts.ID,
		sender:    opts.Sender,
		builder:   opts.Builder,
		resources: resources,
		logger:    opts.Logger.With().Str("session_id", opts.ID).Logger(),
		state:     NewState(),
		status:    StatusIdle,
		createdAt: now,
		touchedAt: now,
	}
}

func (s *Session) ID() string { return s.id }

// View is a point-in-time copy of a session.
type View struct {
	ID        string
	State     State
	Status    Status
	Result    *Handle
	Preview   *Handle
	Err       error
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:        s.id,
		State:     s.state.clone(),
		Status:    s.status,
		Result:    copyHandle(s.result),
		Preview:   copyHandle(s.preview),
		Err:       s.lastErr,
		CreatedAt: s.createdAt,
		UpdatedAt: s.touchedAt,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Update applies a selection mutation. It is allowed while a submit is in
// flight; the in-flight request keeps the snapshot it was built from.
func (s *Session) Update(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = fn(s.state.clone())
	if s.state.Image != prev.Image {
		s.swapPreview(s.state.Image)
	}
	s.touchedAt = time.Now().UTC()
	return s.state.clone()
}

// swapPreview publishes a display handle for a new upload and releases the
// old one. Caller holds mu.
func (s *Session) swapPreview(u *Upload) {
	if s.preview != nil {
		s.resources.Release(s.preview.ID)
		s.preview = nil
	}
	if u != nil && len(u.Data) > 0 {
		h := s.resources.Create(u.Data, u.ContentType)
		s.preview = &h
	}
}

// Submit validates the current selections and starts the request. Validation
// failures and a submit while another is in flight return immediately and
// leave the result untouched. The request itself runs to completion even if
// ctx is cancelled; observe it through the returned Attempt.
func (s *Session) Submit(ctx context.Context) (*Attempt, error) {
	s.mu.Lock()
	if s.status == StatusInFlight {
		s.mu.Unlock()
		return nil, ErrAlreadyInFlight
	}
	s.touchedAt = time.Now().UTC()
	req, err := Validate(s.state)
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Debug().Err(err).Str("mode", string(s.state.Mode)).Msg("submit rejected by validation")
		return nil, err
	}
	payload := s.builder.Build(req)
	attempt := newAttempt(req.Mode())
	s.status = StatusInFlight
	s.lastErr = nil
	s.attempt = attempt
	s.mu.Unlock()

	s.logger.Info().Str("mode", string(req.Mode())).Int("bytes", len(payload.Body)).Msg("generation submitted")

	go s.run(context.WithoutCancel(ctx), attempt, payload)
	return attempt, nil
}

func (s *Session) run(ctx context.Context, attempt *Attempt, payload imagegen.Payload) {
	img, err := s.sender.Send(ctx, payload)
	s.complete(attempt, img, err)
}

// complete is the single resolution path of an attempt.
func (s *Session) complete(attempt *Attempt, img *imagegen.Image, sendErr error) {
	elapsed := time.Since(attempt.started)

	var failure error
	switch {
	case sendErr != nil:
		failure = classify(attempt.mode, sendErr)
	case img == nil || len(img.Data) == 0:
		failure = &RequestError{Kind: KindServiceRejected, Mode: attempt.mode, Err: errNoImage}
	}

	s.mu.Lock()
	var handle Handle
	switch {
	case s.closed:
		// The session is gone; nothing may hold a handle for this result.
		if failure == nil {
			failure = ErrSessionClosed
		}
		s.status = StatusFailed
		s.lastErr = failure
	case failure != nil:
		s.status = StatusFailed
		s.lastErr = failure
	default:
		handle = s.resources.Create(img.Data, img.ContentType)
		previous := s.result
		s.result = &handle
		s.status = StatusSucceeded
		s.lastErr = nil
		if previous != nil {
			s.resources.Release(previous.ID)
		}
	}
	s.attempt = nil
	s.touchedAt = time.Now().UTC()
	s.mu.Unlock()

	if failure != nil {
		s.logger.Warn().Err(failure).Dur("elapsed", elapsed).Msg("generation failed")
		attempt.resolve(Handle{}, failure)
		return
	}
	s.logger.Info().Str("handle", handle.ID).Int("bytes", handle.Size).Str("content_type", handle.ContentType).
		Dur("elapsed", elapsed).Msg("generation succeeded")
	attempt.resolve(handle, nil)
}

// Pending returns the in-flight attempt, if any.
func (s *Session) Pending() *Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Result returns the current result image.
func (s *Session) Result() (Resource, bool) {
	s.mu.Lock()
	h := s.result
	s.mu.Unlock()
	if h == nil {
		return Resource{}, false
	}
	return s.resources.Open(h.ID)
}

// Close releases every handle the session owns. A result that arrives after
// Close is released on arrival.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.result != nil {
		s.resources.Release(s.result.ID)
		s.result = nil
	}
	if s.preview != nil {
		s.resources.Release(s.preview.ID)
		s.preview = nil
	}
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status != StatusInFlight && s.touchedAt.Before(cutoff)
}

func copyHandle(h *Handle) *Handle {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// Attempt is the pending outcome of one submit. It resolves exactly once.
type Attempt struct {
	mode    Mode
	started time.Time
	done    chan struct{}
	handle  Handle
	err     error
}

func newAttempt(mode Mode) *Attempt {
	return &Attempt{mode: mode, started: time.Now(), done: make(chan struct{})}
}

func (a *Attempt) Mode() Mode { return a.mode }

// Done is closed once the attempt has resolved.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Wait blocks until the attempt resolves or ctx ends. Giving up on the wait
// does not stop the request.
func (a *Attempt) Wait(ctx context.Context) (Handle, error) {
	select {
	case <-a.done:
		return a.handle, a.err
	case <-ctx.Done():
		return Handle{}, ctx.Err()
	}
}

func (a *Attempt) resolve(h Handle, err error) {
	a.handle = h
	if err != nil {
		a.err = err
	}
	close(a.done)
}
