package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"frostgreet/pkg/authclient"
	"frostgreet/pkg/domain"
	"frostgreet/pkg/events"
	"frostgreet/pkg/session"
)

type capturingPublisher struct {
	events chan events.TurnEvent
}

func (p *capturingPublisher) PublishTurn(_ context.Context, event events.TurnEvent) error {
	p.events <- event
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func newTestOrchestrator(t *testing.T, authURL string, publisher events.Publisher) (*Orchestrator, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	orch, err := New(Config{
		Auth: authclient.NewClient(authURL, store),
		Generator: &stubGenerator{
			generate: func(context.Context, domain.GenerationRequest) (domain.Output, error) {
				return textOutput("hello"), nil
			},
		},
		Sessions:  store,
		Publisher: publisher,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orch, store
}

func TestNewRequiresWiring(t *testing.T) {
	store := session.NewMemoryStore()
	auth := authclient.NewClient("http://unused.invalid", store)
	gen := &stubGenerator{}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing auth", Config{Generator: gen, Sessions: store}},
		{"missing generator", Config{Auth: auth, Sessions: store}},
		{"missing sessions", Config{Auth: auth, Generator: gen}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatal("expected wiring error")
			}
		})
	}
}

func TestAuthActionsAreSerialized(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "tok",
			"user":  domain.UserProfile{ID: 1, Username: "u", Email: "u@example.com"},
		})
	}))
	defer srv.Close()
	defer close(release)

	orch, _ := newTestOrchestrator(t, srv.URL, nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := orch.Login(context.Background(), "u@example.com", "password99")
		firstDone <- err
	}()
	<-started

	if _, err := orch.Login(context.Background(), "u@example.com", "password99"); !errors.Is(err, ErrAuthInProgress) {
		t.Fatalf("expected ErrAuthInProgress, got %v", err)
	}
	if err := orch.Logout(context.Background()); !errors.Is(err, ErrAuthInProgress) {
		t.Fatalf("expected ErrAuthInProgress for logout, got %v", err)
	}
}

func TestSessionClearsExpiredToken(t *testing.T) {
	orch, store := newTestOrchestrator(t, "http://unused.invalid", nil)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	_ = store.SetSession(signed, domain.UserProfile{ID: 1, Username: "u", Email: "u@example.com"})

	if sess := orch.Session(); sess.Authenticated() {
		t.Fatalf("expired token must read as logged out, got %+v", sess)
	}
	if store.Session().Authenticated() {
		t.Fatal("expired token must be cleared from the store")
	}
}

func TestSessionKeepsOpaqueToken(t *testing.T) {
	orch, store := newTestOrchestrator(t, "http://unused.invalid", nil)
	_ = store.SetSession("opaque-token", domain.UserProfile{ID: 1, Username: "u", Email: "u@example.com"})
	if sess := orch.Session(); !sess.Authenticated() {
		t.Fatal("opaque token must stay logged in")
	}
}

func TestCompletedTurnIsPublished(t *testing.T) {
	publisher := &capturingPublisher{events: make(chan events.TurnEvent, 1)}
	orch, _ := newTestOrchestrator(t, "http://unused.invalid", publisher)

	conv := orch.StartConversation(domain.KindText)
	if _, err := conv.Generate(context.Background(), Prompt{Message: "greeting for family"}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	select {
	case event := <-publisher.events:
		if event.SessionID != conv.SessionID() {
			t.Fatalf("event session id = %q, want %q", event.SessionID, conv.SessionID())
		}
		if event.Kind != domain.KindText || event.TurnType != domain.TurnInitial {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.Request != "greeting for family" {
			t.Fatalf("event request = %q", event.Request)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("turn event was not published")
	}
}
