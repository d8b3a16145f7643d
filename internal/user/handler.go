package user

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/auth-api/internal/auth"
	"github.com/wichananm65/auth-api/internal/logging"
)

const (
	msgEmailExists        = "E-mail já existente"
	msgInvalidCredentials = "Usuário e/ou senha inválidos"
	msgNotFound           = "Usuário não encontrado"
	msgInvalidBody        = "Requisição inválida"
	msgInvalidData        = "Dados inválidos"

	// MessageServerError is the only detail clients get for unexpected failures.
	MessageServerError = "Erro no servidor, tente novamente mais tarde"
)

type Handler struct {
	service *Service
	log     logging.Logger
}

// sessionResponse is the body returned by signup and signin.
type sessionResponse struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"data_criacao"`
	UpdatedAt time.Time  `json:"data_atualizacao"`
	LastLogin *time.Time `json:"ultimo_login"`
	Token     string     `json:"token"`
}

func NewHandler(service *Service, log logging.Logger) *Handler {
	return &Handler{service: service, log: log.With("component", "user")}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Post("/signup", h.signup)
	app.Post("/signin", h.signin)
}

func (h *Handler) RegisterProtectedRoutes(app fiber.Router, requireAuth fiber.Handler) {
	app.Get("/user", requireAuth, h.getProfile)
}

func (h *Handler) signup(c *fiber.Ctx) error {
	payload := new(signupRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"mensagem": msgInvalidBody})
	}
	if err := payload.Validate(); err != nil {
		return h.fail(c, err)
	}

	session, err := h.service.Signup(c.UserContext(), SignupInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Phones:   payload.Phones,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(session))
}

func (h *Handler) signin(c *fiber.Ctx) error {
	payload := new(signinRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"mensagem": msgInvalidBody})
	}
	if err := payload.Validate(); err != nil {
		return h.fail(c, err)
	}

	session, err := h.service.Signin(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(toSessionResponse(session))
}

// getProfile returns the authenticated user without the password hash.
func (h *Handler) getProfile(c *fiber.Ctx) error {
	userID, ok := auth.UserIDFromCtx(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"mensagem": auth.MessageUnauthorized})
	}

	user, err := h.service.Profile(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"user": user})
}

// fail maps a service error onto its status and message. Anything unknown is
// logged and reported as a generic server error.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var invalid validation.Errors
	switch {
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"mensagem": msgInvalidData, "erros": invalid})
	case errors.Is(err, ErrEmailExists):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"mensagem": msgEmailExists})
	case errors.Is(err, ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"mensagem": msgInvalidCredentials})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"mensagem": msgNotFound})
	}

	h.log.Error(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"mensagem": MessageServerError})
}

func toSessionResponse(s Session) sessionResponse {
	return sessionResponse{
		ID:        s.User.ID,
		CreatedAt: s.User.CreatedAt,
		UpdatedAt: s.User.UpdatedAt,
		LastLogin: s.User.LastLogin,
		Token:     s.Token,
	}
}
