// Package conversation drives the request lifecycle of a greeting flow:
// one conversation, one opaque session id, at most one in-flight request.
package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"frostgreet/pkg/domain"
	"frostgreet/pkg/history"
)

// State names the lifecycle position of a conversation.
type State string

const (
	StateEmpty        State = "empty"
	StateGenerating   State = "generating"
	StateReady        State = "ready"
	StateRegenerating State = "regenerating"
)

var (
	// ErrGenerationInProgress rejects a second request while one is in flight.
	ErrGenerationInProgress = errors.New("a generation request is already in progress")
	// ErrAlreadyStarted rejects Generate once the conversation has a result;
	// start over with Reset.
	ErrAlreadyStarted = errors.New("conversation already has a greeting; reset to start over")
	// ErrNothingToRegenerate rejects Regenerate before the first successful
	// generation.
	ErrNothingToRegenerate = errors.New("nothing to regenerate yet")
	// ErrSuperseded marks a result that arrived after the conversation was
	// reset. The result is discarded, never applied.
	ErrSuperseded = errors.New("conversation was reset while the request was in flight")
)

// Generator issues generation requests against the remote service.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.Output, error)
	Regenerate(ctx context.Context, req domain.GenerationRequest) (domain.Output, error)
}

// TurnObserver is notified after a turn is committed to history.
type TurnObserver func(sessionID string, kind domain.Kind, entry domain.HistoryEntry)

// Prompt is the user input for one turn.
type Prompt struct {
	Message string
	Image   *domain.ImagePayload
}

func (p Prompt) requestText() string {
	if p.Message != "" {
		return p.Message
	}
	if p.Image != nil {
		return p.Image.Text
	}
	return ""
}

// Conversation is one greeting flow. The zero value is not usable; get one
// from Orchestrator.StartConversation.
type Conversation struct {
	kind     domain.Kind
	gen      Generator
	observer TurnObserver

	mu        sync.Mutex
	state     State
	sessionID string
	hist      *history.History
	current   domain.Output
}

func newConversation(kind domain.Kind, gen Generator, observer TurnObserver) *Conversation {
	return &Conversation{
		kind:      kind,
		gen:       gen,
		observer:  observer,
		state:     StateEmpty,
		sessionID: uuid.NewString(),
		hist:      history.New(),
	}
}

// SessionID returns the current conversation identifier. Reset rotates it.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// State returns the current lifecycle state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the displayed output, if any.
func (c *Conversation) Current() (domain.Output, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.state == StateReady
}

// History returns a copy of the recorded turns.
func (c *Conversation) History() []domain.HistoryEntry {
	return c.hist.Entries()
}

// Generate runs the initial turn. Only reachable from the empty state.
func (c *Conversation) Generate(ctx context.Context, prompt Prompt) (domain.Output, error) {
	c.mu.Lock()
	switch c.state {
	case StateGenerating, StateRegenerating:
		c.mu.Unlock()
		return domain.Output{}, ErrGenerationInProgress
	case StateReady:
		c.mu.Unlock()
		return domain.Output{}, ErrAlreadyStarted
	}
	issued := c.sessionID
	c.state = StateGenerating
	c.mu.Unlock()

	out, err := c.gen.Generate(ctx, domain.GenerationRequest{
		Kind:      c.kind,
		SessionID: issued,
		Message:   prompt.Message,
		Image:     prompt.Image,
	})
	return c.settle(domain.TurnInitial, StateEmpty, issued, prompt.requestText(), out, err)
}

// Regenerate refines the current result within the same conversation. Only
// reachable from the ready state.
func (c *Conversation) Regenerate(ctx context.Context, prompt Prompt) (domain.Output, error) {
	c.mu.Lock()
	switch c.state {
	case StateGenerating, StateRegenerating:
		c.mu.Unlock()
		return domain.Output{}, ErrGenerationInProgress
	case StateEmpty:
		c.mu.Unlock()
		return domain.Output{}, ErrNothingToRegenerate
	}
	issued := c.sessionID
	c.state = StateRegenerating
	c.mu.Unlock()

	out, err := c.gen.Regenerate(ctx, domain.GenerationRequest{
		Kind:      c.kind,
		SessionID: issued,
		Message:   prompt.Message,
		Image:     prompt.Image,
	})
	return c.settle(domain.TurnRegenerate, StateReady, issued, prompt.requestText(), out, err)
}

// settle applies the outcome of a finished request. A rotated session id
// means the conversation was reset mid-flight: the stale result is dropped
// and the state the reset produced is left alone. On failure the prior
// stable state is restored and history is untouched.
func (c *Conversation) settle(turnType domain.TurnType, fallback State, issued, requestText string, out domain.Output, err error) (domain.Output, error) {
	c.mu.Lock()
	if c.sessionID != issued {
		c.mu.Unlock()
		return domain.Output{}, ErrSuperseded
	}
	if err != nil {
		c.state = fallback
		c.mu.Unlock()
		return domain.Output{}, err
	}
	c.state = StateReady
	c.current = out
	entry := c.hist.Append(turnType, requestText, out)
	observer := c.observer
	c.mu.Unlock()

	if observer != nil {
		observer(issued, c.kind, entry)
	}
	return out, nil
}

// SelectTurn re-displays the output of a prior turn. History is not
// modified.
func (c *Conversation) SelectTurn(index int) (domain.Output, error) {
	out, err := c.hist.Turn(index)
	if err != nil {
		return domain.Output{}, err
	}
	c.mu.Lock()
	if c.state == StateReady {
		c.current = out
	}
	c.mu.Unlock()
	return out, nil
}

// Reset discards history, rotates the session id so the server forgets the
// accumulated context, and returns to the empty state. A request still in
// flight will find the rotated id and be ignored on arrival.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.sessionID = uuid.NewString()
	c.state = StateEmpty
	c.current = domain.Output{}
	// Clear history under the same lock: a turn settling between the state
	// change and the history wipe would otherwise lose its entry while the
	// conversation reports ready.
	c.hist.Reset()
	c.mu.Unlock()
}
