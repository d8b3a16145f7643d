// Package server assembles the fiber application: middleware chain, public
// routes and the token-protected profile route.
package server

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wichananm65/auth-api/internal/auth"
	"github.com/wichananm65/auth-api/internal/logging"
	"github.com/wichananm65/auth-api/internal/user"
)

const msgWelcome = "Bem-vindo à API"

type Deps struct {
	Users  *user.Handler
	Tokens *auth.TokenManager
	Log    logging.Logger

	// CORSAllowOrigins is passed to the cors middleware; empty means "*".
	CORSAllowOrigins string
	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "auth-api",
		ErrorHandler: errorHandler(d.Log),
	})

	app.Use(recover.New())
	if d.AccessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${latency} ${method} ${path}\n",
			Output: d.AccessLog,
		}))
	}
	setupCORS(app, d.CORSAllowOrigins)

	app.Get("/", welcome)
	d.Users.RegisterPublicRoutes(app)
	d.Users.RegisterProtectedRoutes(app, d.Tokens.RequireAuth())

	return app
}

func setupCORS(app *fiber.App, origins string) {
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,HEAD,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func welcome(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"mensagem": msgWelcome})
}

// errorHandler turns anything that escapes a handler, including recovered
// panics and unknown routes, into a JSON body. Server errors never carry
// their cause to the client.
func errorHandler(log logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := user.MessageServerError

		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "unhandled error", "method", c.Method(), "path", c.Path(), "err", err)
		}

		return c.Status(code).JSON(fiber.Map{"mensagem": msg})
	}
}
