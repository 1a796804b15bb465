package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"frostgreet/pkg/authclient"
	"frostgreet/pkg/domain"
	"frostgreet/pkg/events"
	"frostgreet/pkg/history"
	"frostgreet/pkg/session"
	"frostgreet/pkg/storage"
)

// ErrAuthInProgress rejects a second auth action while one is pending,
// mirroring the single-pending-generation rule.
var ErrAuthInProgress = errors.New("an auth action is already in progress")

const sideEffectTimeout = 30 * time.Second

// Config wires the orchestrator's collaborators. Auth, Generator, and
// Sessions are required; Archive, Publisher, and Media are optional side
// channels.
type Config struct {
	Auth      *authclient.Client
	Generator Generator
	Sessions  session.Store
	Archive   *history.Archive
	Publisher events.Publisher
	Media     storage.MediaStore
}

// Orchestrator is the composition root: it turns user intents into calls on
// the auth and generation clients and owns the cross-conversation shared
// state (the persisted session).
type Orchestrator struct {
	auth      *authclient.Client
	gen       Generator
	sessions  session.Store
	archive   *history.Archive
	publisher events.Publisher
	media     storage.MediaStore

	mu          sync.Mutex
	authPending bool
}

// New validates the wiring and builds an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Auth == nil {
		return nil, fmt.Errorf("auth client required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Orchestrator{
		auth:      cfg.Auth,
		gen:       cfg.Generator,
		sessions:  cfg.Sessions,
		archive:   cfg.Archive,
		publisher: publisher,
		media:     cfg.Media,
	}, nil
}

// StartConversation opens a fresh conversation for one generation kind.
// Conversations are independent; any number may run concurrently.
func (o *Orchestrator) StartConversation(kind domain.Kind) *Conversation {
	return newConversation(kind, o.gen, o.afterTurn)
}

// Session returns the persisted session. An expired JWT-shaped token counts
// as logged out and is cleared on sight.
func (o *Orchestrator) Session() domain.Session {
	sess := o.sessions.Session()
	if sess.Authenticated() && session.TokenExpired(sess.Token) {
		slog.Info("stored token expired, clearing session")
		if err := o.sessions.Clear(); err != nil {
			slog.Warn("clear expired session", "err", err)
		}
		return domain.Session{}
	}
	return sess
}

// Login authenticates and persists the session.
func (o *Orchestrator) Login(ctx context.Context, email, password string) (domain.Session, error) {
	if err := o.beginAuth(); err != nil {
		return domain.Session{}, err
	}
	defer o.endAuth()
	return o.auth.Login(ctx, email, password)
}

// Register creates an account and persists the session.
func (o *Orchestrator) Register(ctx context.Context, input authclient.RegisterInput) (domain.Session, error) {
	if err := o.beginAuth(); err != nil {
		return domain.Session{}, err
	}
	defer o.endAuth()
	return o.auth.Register(ctx, input)
}

// Logout clears the session locally no matter what the server says.
func (o *Orchestrator) Logout(ctx context.Context) error {
	if err := o.beginAuth(); err != nil {
		return err
	}
	defer o.endAuth()
	return o.auth.Logout(ctx)
}

func (o *Orchestrator) beginAuth() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.authPending {
		return ErrAuthInProgress
	}
	o.authPending = true
	return nil
}

func (o *Orchestrator) endAuth() {
	o.mu.Lock()
	o.authPending = false
	o.mu.Unlock()
}

// afterTurn runs the best-effort side channels for a committed turn:
// archive it, publish the event, stash generated image bytes. The effects
// are independent, so each logs its own failure instead of failing the
// group; a turn result never depends on any of them.
func (o *Orchestrator) afterTurn(sessionID string, kind domain.Kind, entry domain.HistoryEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if o.archive != nil {
		g.Go(func() error {
			if err := o.archive.SaveTurn(sessionID, kind, entry); err != nil {
				slog.Warn("archive turn", "sessionId", sessionID, "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		event := events.TurnEvent{
			SessionID: sessionID,
			Kind:      kind,
			TurnType:  entry.Type,
			Request:   entry.Request,
			CreatedAt: entry.CreatedAt,
		}
		if err := o.publisher.PublishTurn(ctx, event); err != nil {
			slog.Warn("publish turn event", "sessionId", sessionID, "err", err)
		}
		return nil
	})
	if o.media != nil && entry.Output.ImageBase64 != "" {
		g.Go(func() error {
			key, err := o.media.SaveImage(ctx, sessionID, entry.Output.ImageBase64, entry.Output.ImageFormat)
			if err != nil {
				slog.Warn("save generated image", "sessionId", sessionID, "err", err)
				return nil
			}
			slog.Debug("generated image archived", "sessionId", sessionID, "key", key)
			return nil
		})
	}
	_ = g.Wait()
}
