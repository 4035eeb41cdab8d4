package domain

import "time"

// DefaultStartingCredits is the grant applied when an account is provisioned lazily.
const DefaultStartingCredits = 10

// Account is the per-user credit and profile record stored under brands/{uid}.
type Account struct {
	UID         string
	Email       string
	Name        string
	Credits     int
	CreditsUsed int
	Plan        string
	Onboarded   bool
	CreatedAt   time.Time
}

// NewAccountProfile carries the identity claims used to bootstrap a first-time account.
type NewAccountProfile struct {
	Email string
	Name  string
}

// BrandContext holds the brand fields used to personalise prompts.
type BrandContext struct {
	Name     string
	Industry string
	Tone     string
	Audience string
}

// IsEmpty reports whether no brand field carries a value.
func (b BrandContext) IsEmpty() bool {
	return b.Name == "" && b.Industry == "" && b.Tone == "" && b.Audience == ""
}
