package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// DefaultClaimsContextKey is the router Locals key the route guard stores
// validated claims under.
const DefaultClaimsContextKey = "claims"

const defaultAuthScheme = "Bearer"

// RouteGuard protects routes with the session tokens the login flow issues.
// It validates the bearer token, then exposes the claims through Locals and
// the request context for downstream handlers.
type RouteGuard struct {
	tokens       TokenService
	logger       Logger
	contextKey   string
	authScheme   string
	optional     bool
	ErrorHandler func(router.Context, error) error
}

type RouteGuardOption func(*RouteGuard)

// WithGuardLogger sets the guard logger.
func WithGuardLogger(logger Logger) RouteGuardOption {
	return func(g *RouteGuard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardContextKey overrides the Locals key claims are stored under.
func WithGuardContextKey(key string) RouteGuardOption {
	return func(g *RouteGuard) {
		if key != "" {
			g.contextKey = key
		}
	}
}

// WithGuardOptional lets unauthenticated requests through without claims
// instead of rejecting them.
func WithGuardOptional(optional bool) RouteGuardOption {
	return func(g *RouteGuard) {
		g.optional = optional
	}
}

// WithGuardErrorHandler overrides the rejection response.
func WithGuardErrorHandler(handler func(router.Context, error) error) RouteGuardOption {
	return func(g *RouteGuard) {
		if handler != nil {
			g.ErrorHandler = handler
		}
	}
}

func NewRouteGuard(tokens TokenService, opts ...RouteGuardOption) *RouteGuard {
	if tokens == nil {
		panic("Missing TokenService in route guard...")
	}

	g := &RouteGuard{
		tokens:     tokens,
		logger:     defLogger{},
		contextKey: DefaultClaimsContextKey,
		authScheme: defaultAuthScheme,
	}

	g.ErrorHandler = g.defaultErrHandler

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// ProtectedRoute validates the session token before the wrapped handler runs.
func (g *RouteGuard) ProtectedRoute() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			token := g.extractToken(ctx)
			if token == "" {
				if g.optional {
					return next(ctx)
				}
				return g.ErrorHandler(ctx, ErrTokenMalformed)
			}

			claims, err := g.tokens.Validate(token)
			if err != nil {
				if g.optional {
					return next(ctx)
				}
				g.logger.Info("rejected session token", "error", err)
				return g.ErrorHandler(ctx, err)
			}

			ctx.Locals(g.contextKey, claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return next(ctx)
		}
	}
}

// RequireRole rejects sessions whose role sits below minRole. It expects
// ProtectedRoute to have run first.
func (g *RouteGuard) RequireRole(minRole UserRole) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := GetRouterClaims(ctx, g.contextKey)
			if !ok {
				return g.ErrorHandler(ctx, ErrTokenMalformed)
			}

			if !RoleAtLeast(claims.UserRole, minRole) {
				return g.ErrorHandler(ctx, goerrors.New("insufficient role", goerrors.CategoryAuthz).
					WithMetadata(map[string]any{
						"required": minRole,
					}))
			}

			return next(ctx)
		}
	}
}

func (g *RouteGuard) extractToken(ctx router.Context) string {
	header := ctx.Header("Authorization")
	if header == "" {
		return ctx.Cookies(g.contextKey)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], g.authScheme) {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func (g *RouteGuard) defaultErrHandler(ctx router.Context, err error) error {
	var rich *goerrors.Error
	status := fiber.StatusUnauthorized
	if goerrors.As(err, &rich) && rich.Category == goerrors.CategoryAuthz {
		status = fiber.StatusForbidden
	}

	return ctx.JSON(status, map[string]any{
		"success": false,
		"error":   "authentication failed",
	})
}
