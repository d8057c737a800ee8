package domain

import "time"

// Credential is attached to every outbound request. An empty AccessToken
// means no session.
type Credential struct {
	APIKey      string
	AccessToken string
}

func (c Credential) Authenticated() bool {
	return c.AccessToken != ""
}

// SessionState is the in-memory session as seen by persistence.
type SessionState struct {
	Endpoint    string
	AccessToken string
	User        *Record
}

// SessionProfile is what the profile repository stores. The token itself
// lives in a secret store under TokenRef.
type SessionProfile struct {
	Endpoint string
	TokenRef string
	User     *Record
	SavedAt  time.Time
}
