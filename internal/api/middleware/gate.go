package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/api/response"
)

var (
	ErrUnauthenticated = errors.New("no authenticated principal")
	ErrForbidden       = errors.New("principal is not an internal user")
)

// Principal is the caller the gate admitted.
type Principal struct {
	Name string
}

// Gate decides whether a request comes from an internal user. It returns
// ErrUnauthenticated or ErrForbidden when it does not.
type Gate interface {
	Admit(r *http.Request) (Principal, error)
}

type contextKey string

const principalKey contextKey = "principal"

// AllowAll admits every request as a fixed local principal. It is meant for
// development and for deployments fronted by an authenticating proxy that
// already restricts access.
type AllowAll struct {
	Name string
}

func (a AllowAll) Admit(_ *http.Request) (Principal, error) {
	name := a.Name
	if name == "" {
		name = "local"
	}
	return Principal{Name: name}, nil
}

// HeaderPrincipal trusts an identity header set by the fronting proxy, e.g.
// App Service authentication's X-MS-CLIENT-PRINCIPAL-NAME. With AllowedDomains
// set, only principals whose e-mail domain is listed are internal.
type HeaderPrincipal struct {
	Header         string
	AllowedDomains []string
}

func (h HeaderPrincipal) Admit(r *http.Request) (Principal, error) {
	name := strings.TrimSpace(r.Header.Get(h.Header))
	if name == "" {
		return Principal{}, ErrUnauthenticated
	}
	if len(h.AllowedDomains) == 0 {
		return Principal{Name: name}, nil
	}
	at := strings.LastIndex(name, "@")
	if at < 0 {
		return Principal{}, ErrForbidden
	}
	domain := strings.ToLower(name[at+1:])
	for _, d := range h.AllowedDomains {
		if domain == strings.ToLower(d) {
			return Principal{Name: name}, nil
		}
	}
	return Principal{}, ErrForbidden
}

// RequireInternal returns middleware that rejects requests the gate does not
// admit and injects the admitted principal into the context.
func RequireInternal(g Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := g.Admit(r)
			if err != nil {
				status := http.StatusForbidden
				if errors.Is(err, ErrUnauthenticated) {
					status = http.StatusUnauthorized
				}
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("request denied")
				response.WriteError(w, status, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// GetPrincipal extracts the admitted principal from the request context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal returns a context carrying p, as RequireInternal does.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
