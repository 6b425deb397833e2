// internal/guide/session.go
package guide

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"github.com/Corphon/ArtVistas/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 30 * time.Second

var (
	ErrEmptyInput    = errors.New("guide: input is empty")
	ErrBusy          = errors.New("guide: a request is already in flight")
	ErrNotConfigured = errors.New("guide: text-generation provider is not configured")
	ErrSessionClosed = errors.New("guide: session is closed")
)

// Generator produces the assistant reply for a fully built prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// State is the request lifecycle of a session.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateError            State = "error"
)

// Outcome is delivered exactly once per accepted submission.
type Outcome struct {
	Reply *Message
	Err   error
}

// EventType names what changed in a session.
type EventType string

const (
	EventMessage EventType = "message"
	EventState   EventType = "state"
	EventPersona EventType = "persona"
)

// Event is published to observers after every transcript, state or persona
// change. Seq increases by one per event within a session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Seq       uint64    `json:"seq"`
	State     State     `json:"state"`
	Persona   Persona   `json:"persona"`
	Message   *Message  `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Observer receives session events in Seq order. It is called without the
// session lock held and must not block for long, nor submit to or change the
// persona of the session it observes.
type Observer func(Event)

// Snapshot is a consistent copy of a session's visible state.
type Snapshot struct {
	ID        string         `json:"id"`
	Persona   Persona        `json:"persona"`
	Guide     PersonaProfile `json:"guide"`
	State     State          `json:"state"`
	LastError string         `json:"last_error,omitempty"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type options struct {
	id        string
	persona   Persona
	window    ContextWindow
	timeout   time.Duration
	logger    *zap.Logger
	observers []Observer
	welcome   bool
	configErr error
	now       func() time.Time
	newID     func() string
}

// Option configures a Session.
type Option func(*options)

func WithID(id string) Option { return func(o *options) { o.id = id } }

func WithPersona(p Persona) Option { return func(o *options) { o.persona = p } }

func WithContextWindow(w ContextWindow) Option { return func(o *options) { o.window = w } }

func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

func WithObserver(fn Observer) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithoutWelcome starts the transcript empty.
func WithoutWelcome() Option { return func(o *options) { o.welcome = false } }

// WithConfigurationError records why no generator is available; Submit
// reports it instead of the generic ErrNotConfigured.
func WithConfigurationError(err error) Option { return func(o *options) { o.configErr = err } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithIDGenerator(fn func() string) Option { return func(o *options) { o.newID = fn } }

// Session is one visitor's conversation with the guide. At most one provider
// request is outstanding per session; the transcript only grows.
type Session struct {
	mu        sync.Mutex
	id        string
	persona   Persona
	state     State
	lastErr   error
	messages  []Message
	closed    bool
	seq       uint64
	createdAt time.Time
	updatedAt time.Time

	gen       Generator
	configErr error
	window    ContextWindow
	timeout   time.Duration
	logger    *zap.Logger
	observers []Observer
	now       func() time.Time
	newID     func() string

	// outbox holds events in Seq order until flush hands them to observers;
	// pubMu keeps one flusher at a time so delivery order matches Seq.
	outbox []Event
	pubMu  sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates an idle session. A nil gen leaves the session usable for
// reading and persona changes, but every submission fails with a
// configuration error.
func NewSession(gen Generator, opts ...Option) *Session {
	o := options{
		persona: DefaultPersona,
		window:  Unbounded{},
		timeout: DefaultTimeout,
		welcome: true,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.persona.Valid() {
		o.persona = DefaultPersona
	}
	if o.window == nil {
		o.window = Unbounded{}
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.id == "" {
		o.id = o.newID()
	}

	s := &Session{
		id:        o.id,
		persona:   o.persona,
		state:     StateIdle,
		gen:       gen,
		window:    o.window,
		timeout:   o.timeout,
		observers: o.observers,
		now:       o.now,
		newID:     o.newID,
	}
	s.logger = utils.OrNop(o.logger).With(zap.String("session_id", s.id))
	if gen == nil {
		cause := o.configErr
		if cause == nil {
			cause = ErrNotConfigured
		}
		s.configErr = apperrors.NewConfigurationError("text-generation provider is not configured", cause)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.createdAt = s.now()
	s.updatedAt = s.createdAt
	if o.welcome {
		s.messages = append(s.messages, Message{
			ID:        welcomeID,
			Role:      RoleAssistant,
			Content:   welcomeContent,
			CreatedAt: s.createdAt,
		})
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Persona() Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

// LastError is the failure description while the session is in StateError.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		Persona:   s.persona,
		Guide:     s.persona.Profile(),
		State:     s.state,
		Messages:  append([]Message(nil), s.messages...),
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// SetPersona switches the instruction used for subsequent requests. A request
// already in flight keeps the persona it was built with.
func (s *Session) SetPersona(p Persona) error {
	if !p.Valid() {
		return apperrors.NewValidationError("unknown persona "+string(p), nil)
	}

	s.mu.Lock()
	if s.persona == p {
		s.mu.Unlock()
		return nil
	}
	s.persona = p
	s.updatedAt = s.now()
	s.queueLocked(s.eventLocked(EventPersona, nil))
	s.mu.Unlock()

	s.logger.Debug("persona changed", zap.String("persona", string(p)))
	s.flush()
	return nil
}

// Submit appends the visitor's text and starts one provider request. It
// returns the appended message and a channel that yields a single Outcome and
// is then closed. Empty input, an outstanding request, a closed session or a
// missing provider are rejected without touching the transcript or state.
func (s *Session) Submit(text string) (Message, <-chan Outcome, error) {
	if strings.TrimSpace(text) == "" {
		utils.MetricsGuideSubmissionRejected("empty")
		return Message{}, nil, apperrors.NewInputRejectedError("message must not be empty", ErrEmptyInput)
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		utils.MetricsGuideSubmissionRejected("closed")
		return Message{}, nil, apperrors.NewInputRejectedError("session is closed", ErrSessionClosed)
	case s.state == StateAwaitingResponse:
		s.mu.Unlock()
		utils.MetricsGuideSubmissionRejected("busy")
		return Message{}, nil, apperrors.NewInputRejectedError("the guide is still answering the previous message", ErrBusy)
	case s.configErr != nil:
		s.mu.Unlock()
		utils.MetricsGuideSubmissionRejected("not_configured")
		return Message{}, nil, s.configErr
	}

	prompt := BuildPrompt(s.persona, s.window.Select(s.messages), text)
	persona := s.persona

	msg := s.newMessageLocked(RoleUser, text)
	s.messages = append(s.messages, msg)
	s.state = StateAwaitingResponse
	s.lastErr = nil
	s.queueLocked(
		s.eventLocked(EventMessage, &msg),
		s.eventLocked(EventState, nil),
	)
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	s.mu.Unlock()

	s.flush()

	out := make(chan Outcome, 1)
	go s.await(ctx, cancel, persona, prompt, out)
	return msg, out, nil
}

// Close cancels any outstanding request and rejects further submissions.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) await(ctx context.Context, cancel context.CancelFunc, persona Persona, prompt string, out chan<- Outcome) {
	defer close(out)
	defer cancel()

	utils.MetricsGuideRequestStarted()
	start := time.Now()
	reply, err := s.gen.Generate(ctx, prompt)
	elapsed := time.Since(start)

	s.mu.Lock()
	var (
		outcome Outcome
		status  = "ok"
	)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = "timeout"
			err = apperrors.NewTimeoutError("the guide did not answer in time", err)
		case errors.Is(err, context.Canceled):
			status = "cancelled"
			err = apperrors.NewProviderError("the request was cancelled", err)
		default:
			status = "error"
			err = apperrors.NewProviderError("the guide could not answer right now", err)
		}
		s.state = StateError
		s.lastErr = err
		s.updatedAt = s.now()
		ev := s.eventLocked(EventState, nil)
		ev.Error = err.Error()
		s.queueLocked(ev)
		outcome.Err = err
	} else {
		msg := s.newMessageLocked(RoleAssistant, reply)
		s.messages = append(s.messages, msg)
		s.state = StateIdle
		s.queueLocked(
			s.eventLocked(EventMessage, &msg),
			s.eventLocked(EventState, nil),
		)
		outcome.Reply = &msg
	}
	s.mu.Unlock()

	utils.MetricsGuideRequestFinished(string(persona), status, elapsed)
	if err != nil {
		s.logger.Warn("guide request failed",
			zap.String("persona", string(persona)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		s.logger.Debug("guide request completed",
			zap.String("persona", string(persona)),
			zap.Duration("elapsed", elapsed))
	}

	s.flush()
	out <- outcome
}

func (s *Session) newMessageLocked(role Role, content string) Message {
	now := s.now()
	s.updatedAt = now
	return Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

func (s *Session) eventLocked(t EventType, msg *Message) Event {
	s.seq++
	ev := Event{
		Type:      t,
		SessionID: s.id,
		Seq:       s.seq,
		State:     s.state,
		Persona:   s.persona,
	}
	if msg != nil {
		m := *msg
		ev.Message = &m
	}
	return ev
}

func (s *Session) queueLocked(events ...Event) {
	s.outbox = append(s.outbox, events...)
}

// flush delivers queued events outside the session lock. Whoever holds pubMu
// drains everything queued so far, so events from concurrent submissions and
// replies reach observers in Seq order.
func (s *Session) flush() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	for {
		s.mu.Lock()
		batch := s.outbox
		s.outbox = nil
		s.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			for _, fn := range s.observers {
				fn(ev)
			}
		}
	}
}
