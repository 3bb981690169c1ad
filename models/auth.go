package models

// AuthRequest is the platform sign-in payload.
type AuthRequest struct {
	Platform         string                 `json:"platform"`
	PlatformToken    string                 `json:"platformToken"`
	PlatformMetadata map[string]interface{} `json:"platformMetadata,omitempty"`
}

// AuthResult is returned on successful authentication. ProfileIDs is the
// user's full allocated pool, not just the active profiles.
type AuthResult struct {
	Token      string   `json:"token"`
	UserID     string   `json:"userId"`
	ProfileIDs []string `json:"profileIds"`
	NewUser    bool     `json:"newUser"`
}
