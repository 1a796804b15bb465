package domain

import "time"

// Kind identifies which generation endpoint a request targets.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// TurnType distinguishes the first exchange of a conversation from refinements.
type TurnType string

const (
	TurnInitial    TurnType = "initial"
	TurnRegenerate TurnType = "regenerate"
)

// ImageTemplate names a greeting-card template on the image endpoint.
type ImageTemplate string

const (
	TemplateSanta  ImageTemplate = "santa"
	TemplateTree   ImageTemplate = "tree"
	TemplateCustom ImageTemplate = "custom"
)

// UserProfile is the profile record returned by the auth API. The client
// stores and returns it but never interprets the fields.
type UserProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

// Session is the authenticated state of the client. Token and User are
// either both set or both empty.
type Session struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user"`
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// ImagePayload carries the input picture for an image generation request.
type ImagePayload struct {
	Template ImageTemplate
	Text     string
	Data     []byte
	// Format is a MIME type such as "image/png".
	Format string
}

// GenerationRequest is a single call against one of the generation endpoints.
// SessionID is the client-issued conversation identifier, not the auth token.
type GenerationRequest struct {
	Kind      Kind
	SessionID string
	Message   string
	Image     *ImagePayload
}

// Output is the terminal result of a successful generation. Only the fields
// matching Kind are populated.
type Output struct {
	Kind        Kind   `json:"kind"`
	Text        string `json:"text,omitempty"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	ImageFormat string `json:"imageFormat,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
}

// HistoryEntry records one completed turn of a conversation.
type HistoryEntry struct {
	Type      TurnType  `json:"type"`
	Request   string    `json:"request"`
	Output    Output    `json:"output"`
	CreatedAt time.Time `json:"createdAt"`
}
