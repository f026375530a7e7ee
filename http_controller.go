package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the four protocol endpoints. Both steps of each
// flow are POST only: every message carries a binary payload.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.RegistrationChallenge, controller.RegistrationChallengePost).
		SetName("registration-challenge.post")

	app.
		Post(controller.Routes.RegistrationComplete, controller.RegistrationCompletePost).
		SetName("registration-complete.post")

	app.
		Post(controller.Routes.LoginChallenge, controller.LoginChallengePost).
		SetName("login-challenge.post")

	app.
		Post(controller.Routes.LoginComplete, controller.LoginCompletePost).
		SetName("login-complete.post")
}

type AuthControllerRoutes struct {
	RegistrationChallenge string
	RegistrationComplete  string
	LoginChallenge        string
	LoginComplete         string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Registration *RegistrationFlow
	Login        *LoginFlow
	Routes       *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerRegistration(flow *RegistrationFlow) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registration = flow
		return c
	}
}

func WithControllerLogin(flow *LoginFlow) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Login = flow
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			RegistrationChallenge: "/auth/registration/challenge",
			RegistrationComplete:  "/auth/registration/complete",
			LoginChallenge:        "/auth/login/challenge",
			LoginComplete:         "/auth/login/complete",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registration == nil {
		panic("Missing RegistrationFlow in auth controller...")
	}

	if c.Login == nil {
		panic("Missing LoginFlow in auth controller...")
	}

	return c
}

func (a *AuthController) RegistrationChallengePost(ctx router.Context) error {
	payload := new(RegistrationChallengeInput)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("registration challenge parse payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("registration challenge validate payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	if a.Debug {
		fmt.Println("=== REGISTRATION CHALLENGE ===")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==============================")
	}

	result, err := a.Registration.RegistrationChallenge(ctx.Context(), *payload)
	if err != nil {
		a.Logger.Error("registration challenge error: ", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

func (a *AuthController) RegistrationCompletePost(ctx router.Context) error {
	payload := new(RegistrationCompleteInput)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("registration complete parse payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("registration complete validate payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	result, err := a.Registration.RegistrationComplete(ctx.Context(), *payload)
	if err != nil {
		a.Logger.Error("registration complete error: ", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

func (a *AuthController) LoginChallengePost(ctx router.Context) error {
	payload := new(LoginChallengeInput)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login challenge parse payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login challenge validate payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	result, err := a.Login.LoginChallenge(ctx.Context(), *payload)
	if err != nil {
		a.Logger.Error("login challenge error: ", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

func (a *AuthController) LoginCompletePost(ctx router.Context) error {
	payload := new(LoginCompleteInput)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login complete parse payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login complete validate payload: ", "error", err)
		return a.renderError(ctx, malformedMessage("body"))
	}

	result, err := a.Login.LoginComplete(ctx.Context(), *payload)
	if err != nil {
		a.Logger.Error("login complete error: ", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, result)
}

// renderError maps flow errors to responses. Authentication failures share a
// single body regardless of cause, and nothing from the underlying error
// reaches the client.
func (a *AuthController) renderError(ctx router.Context, err error) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return ctx.JSON(fiber.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "malformed request",
			})
		case goerrors.CategoryAuth:
			return ctx.JSON(fiber.StatusUnauthorized, map[string]any{
				"success": false,
				"error":   "authentication failed",
			})
		}
	}

	return ctx.JSON(fiber.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   "internal error",
	})
}
