package portal

import (
	"context"
	"log"
	"time"
)

const (
	loginFormTimeout   = 10 * time.Second
	loginResultTimeout = 15 * time.Second
)

type Credentials struct {
	HolderNumber string
	Birthdate    string
}

type Authenticator struct {
	page        Page
	portalURL   string
	credentials Credentials
}

func NewAuthenticator(page Page, portalURL string, credentials Credentials) *Authenticator {
	return &Authenticator{
		page:        page,
		portalURL:   portalURL,
		credentials: credentials,
	}
}

// Login opens the portal and signs in unless a session is already active.
// Failures are logged and reported as false; they only cost the current cycle.
func (a *Authenticator) Login(ctx context.Context) bool {
	log.Printf("Navigating to %s", a.portalURL)
	if err := a.page.Load(ctx, a.portalURL); err != nil {
		log.Printf("❌ Login failed: %v", err)
		return false
	}

	loggedIn, err := a.page.FindLogoutMarker(ctx, 0)
	if err != nil {
		log.Printf("Could not check login state, assuming logged out: %v", err)
	}
	if loggedIn {
		log.Println("Already logged in")
		return true
	}

	log.Println("Logging in...")
	formFound, err := a.page.FindLoginForm(ctx, loginFormTimeout)
	if err != nil {
		log.Printf("❌ Login failed: %v", err)
		return false
	}
	if !formFound {
		log.Printf("❌ Login failed: login form did not appear within %v", loginFormTimeout)
		return false
	}

	if err := a.page.SubmitLogin(ctx, a.credentials.HolderNumber, a.credentials.Birthdate); err != nil {
		log.Printf("❌ Login failed: %v", err)
		return false
	}

	loggedIn, err = a.page.FindLogoutMarker(ctx, loginResultTimeout)
	if err != nil {
		log.Printf("❌ Login failed: %v", err)
		return false
	}
	if !loggedIn {
		log.Printf("❌ Login failed: no logout marker within %v", loginResultTimeout)
		return false
	}

	log.Println("✅ Login successful")
	return true
}
