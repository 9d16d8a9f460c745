// Package identity resolves the owner of a request across guest cookies and authenticated sessions.
package identity

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"channelcast/internal/apierr"
	"channelcast/internal/auth"
	"channelcast/internal/db"
	"channelcast/internal/logger"
	"channelcast/internal/metrics"
)

const (
	GuestCookieName = "guestUserId"
	GuestTTL        = 24 * time.Hour
)

// Mode selects whether resolving may create a guest owner.
type Mode int

const (
	// ReadOnly never creates an owner for anonymous requests.
	ReadOnly Mode = iota
	// CreateGuest creates a guest owner and issues the guest cookie when none exists.
	CreateGuest
)

// Session is the canonical owner of a request.
type Session struct {
	// OwnerID is empty when the owner is unresolved.
	OwnerID       string
	Authenticated bool
	Identity      auth.Identity
}

func (s Session) Resolved() bool {
	return s.OwnerID != ""
}

// Resolver is the single place owner identity is derived from a request.
type Resolver struct {
	authenticator auth.Authenticator
	cookieSecure  bool
	now           func() time.Time
	log           *logger.Logger
	metrics       *metrics.Metrics
}

type Option func(*Resolver)

// WithClock overrides the time source used for cookie expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithSecureCookies marks issued guest cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(r *Resolver) { r.cookieSecure = secure }
}

// NewResolver builds a resolver. A nil authenticator treats every request as anonymous.
func NewResolver(authenticator auth.Authenticator, log *logger.Logger, m *metrics.Metrics, opts ...Option) *Resolver {
	r := &Resolver{
		authenticator: authenticator,
		now:           time.Now,
		log:           log,
		metrics:       m,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the request's owner. It may set or clear the guest cookie on w and
// may write owners and channel ownership. Store failures are returned, never swallowed.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request, mode Mode) (Session, error) {
	ctx := req.Context()

	ident, err := r.authenticate(req)
	if err != nil && !errors.Is(err, auth.ErrNoCredentials) {
		r.log.Warn("rejected session credential", "error", err)
		return Session{}, apierr.Wrap(apierr.KindUnauthorized, err, "Not authenticated")
	}

	guestID := guestFromCookie(req)

	if err == nil {
		user, err := db.UpsertAuthenticatedUser(ctx, ident.ExternalID)
		if err != nil {
			return Session{}, err
		}
		if guestID != "" && guestID != user.ID {
			if err := r.MigrateGuest(ctx, guestID, user.ID); err != nil {
				return Session{}, err
			}
			r.clearGuestCookie(w)
		}
		return Session{OwnerID: user.ID, Authenticated: true, Identity: ident}, nil
	}

	if guestID != "" {
		return Session{OwnerID: guestID}, nil
	}
	if mode != CreateGuest {
		return Session{}, nil
	}

	guest, err := db.CreateGuestUser(ctx)
	if err != nil {
		return Session{}, err
	}
	r.setGuestCookie(w, guest.ID)
	r.log.Info("issued guest session", "owner_id", guest.ID)
	return Session{OwnerID: guest.ID}, nil
}

// MigrateGuest moves every channel owned by guestID to ownerID. It is safe to run
// concurrently and repeatedly: once the guest owns nothing it does nothing.
func (r *Resolver) MigrateGuest(ctx context.Context, guestID, ownerID string) error {
	moved, err := db.ReassignChannels(ctx, guestID, ownerID)
	if err != nil {
		return err
	}
	if moved > 0 {
		r.metrics.GuestMigrations.Inc()
		r.log.Info("merged guest channels", "guest_id", guestID, "owner_id", ownerID, "channels", moved)
	}
	return nil
}

func (r *Resolver) authenticate(req *http.Request) (auth.Identity, error) {
	if r.authenticator == nil {
		return auth.Identity{}, auth.ErrNoCredentials
	}
	return r.authenticator.Authenticate(req)
}

// guestFromCookie returns the guest owner id, ignoring values that are not ids we issued.
func guestFromCookie(req *http.Request) string {
	c, err := req.Cookie(GuestCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func (r *Resolver) setGuestCookie(w http.ResponseWriter, guestID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    guestID,
		Path:     "/",
		Expires:  r.now().Add(GuestTTL),
		HttpOnly: true,
		Secure:   r.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (r *Resolver) clearGuestCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
