package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"freshcart-api/middleware"
	"freshcart-api/services/session"
)

const (
	sessionCookieName = "freshcart-session"
	sessionIDKey      = "sid"
)

type CookieOptions struct {
	Secret string
	Domain string
	MaxAge time.Duration
	Secure bool
}

func NewCookieStore(opts CookieOptions) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(opts.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(opts.MaxAge.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionResolver maps the signed session cookie to the live checkout session.
// The cookie only carries the session ID; cart state lives in the session store.
type SessionResolver struct {
	cookies sessions.Store
	manager *session.Manager
	logger  *zap.Logger
}

func NewSessionResolver(cookies sessions.Store, manager *session.Manager, logger *zap.Logger) *SessionResolver {
	return &SessionResolver{cookies: cookies, manager: manager, logger: logger}
}

// Resolve must run before anything is written to w since it may set the cookie.
// When the request is authenticated the customer is bound to the session.
func (sr *SessionResolver) Resolve(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	cookie, err := sr.cookies.Get(r, sessionCookieName)
	if err != nil {
		// Tampered or rotated-key cookies decode to a fresh session.
		sr.logger.Debug("discarding unreadable session cookie", zap.Error(err))
	}

	id, _ := cookie.Values[sessionIDKey].(string)
	if id == "" {
		id = uuid.New().String()
		cookie.Values[sessionIDKey] = id
		if err := cookie.Save(r, w); err != nil {
			sr.logger.Error("failed to write session cookie", zap.Error(err))
			return nil, err
		}
	}

	sess, err := sr.manager.Open(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		if err := sess.BindCustomer(r.Context(), user.CustomerID); err != nil {
			sr.logger.Warn("failed to bind customer to session",
				zap.String("session_id", id), zap.String("customer_id", user.CustomerID), zap.Error(err))
		}
	}
	return sess, nil
}
