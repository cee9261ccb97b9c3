package domain

// Identity is who the session is authenticated as.
type Identity struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider"` // "local" or "google"
}

// AuthState is the session's position in the login state machine.
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateAwaitingCallback
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}
