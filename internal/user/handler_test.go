package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/auth-api/internal/auth"
	"github.com/wichananm65/auth-api/internal/logging"
)

// helper to build an app with a simple "bootstrap" middleware that stores a
// user id in locals when the X-User-ID header is provided. This avoids
// pulling in the JWT middleware and keeps tests lightweight.
func makeAppWithUserHandler(uHandler *Handler) *fiber.App {
	app := fiber.New()
	requireUser := func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			c.Locals(auth.UserIDKey, v)
		}
		return c.Next()
	}
	uHandler.RegisterPublicRoutes(app)
	uHandler.RegisterProtectedRoutes(app, requireUser)
	return app
}

func newTestHandler(repo Repository) (*Handler, *stubIssuer) {
	issuer := &stubIssuer{}
	return NewHandler(NewService(repo, issuer), logging.Nop()), issuer
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s request failed: %v", path, err)
	}
	return res.StatusCode, decodeBody(t, res.Body)
}

func decodeBody(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	b, _ := io.ReadAll(r)
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("response is not a JSON object: %s", string(b))
	}
	return out
}

func TestUserRoutes_Registered(t *testing.T) {
	handler, _ := newTestHandler(NewInMemoryRepository(nil))
	app := makeAppWithUserHandler(handler)

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Method+" "+r.Path] = true
		}
	}
	for _, want := range []string{"POST /signup", "POST /signin", "GET /user"} {
		if !routes[want] {
			t.Fatalf("expected route %q to be registered", want)
		}
	}
}

func TestSignup_Created(t *testing.T) {
	handler, _ := newTestHandler(NewInMemoryRepository(nil))
	app := makeAppWithUserHandler(handler)

	status, body := postJSON(t, app, "/signup",
		`{"nome":"Ana","email":"ana@x.com","senha":"s3cret!","telefones":[{"numero":"987654321","ddd":"11"}]}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, body)
	}
	for _, key := range []string{"id", "data_criacao", "data_atualizacao", "ultimo_login", "token"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("response missing %q: %v", key, body)
		}
	}
	if body["ultimo_login"] != nil {
		t.Fatalf("ultimo_login should be null on signup, got %v", body["ultimo_login"])
	}
	for _, leaked := range []string{"senha", "password", "PasswordHash"} {
		if _, ok := body[leaked]; ok {
			t.Fatalf("response must not contain %q", leaked)
		}
	}
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing name", body: `{"email":"a@x.com","senha":"pw"}`, field: "nome"},
		{name: "bad email", body: `{"nome":"A","email":"not-an-email","senha":"pw"}`, field: "email"},
		{name: "missing password", body: `{"nome":"A","email":"a@x.com"}`, field: "senha"},
		{name: "password too long", body: `{"nome":"A","email":"a@x.com","senha":"` + strings.Repeat("x", 73) + `"}`, field: "senha"},
		{name: "null phone entry", body: `{"nome":"A","email":"a@x.com","senha":"pw","telefones":[null]}`, field: "telefones"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewInMemoryRepository(nil)
			handler, _ := newTestHandler(repo)
			app := makeAppWithUserHandler(handler)

			status, body := postJSON(t, app, "/signup", tt.body)
			if status != fiber.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %v", status, body)
			}
			errs, ok := body["erros"].(map[string]any)
			if !ok || errs[tt.field] == nil {
				t.Fatalf("expected error for %q, got %v", tt.field, body)
			}
			if _, err := repo.GetByEmail(context.Background(), "a@x.com"); err == nil {
				t.Fatalf("invalid signup must not create a user")
			}
		})
	}
}

func TestSignup_MalformedBody(t *testing.T) {
	handler, _ := newTestHandler(NewInMemoryRepository(nil))
	app := makeAppWithUserHandler(handler)

	for _, body := range []string{`{"nome":`, `{"telefones":"123"}`, `{"telefones":[1]}`, ``} {
		status, resp := postJSON(t, app, "/signup", body)
		if status != fiber.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, status)
		}
		if resp["mensagem"] == nil {
			t.Fatalf("body %q: expected mensagem field, got %v", body, resp)
		}
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	repo := NewInMemoryRepository([]User{{ID: "u1", Email: "ana@x.com"}})
	handler, _ := newTestHandler(repo)
	app := makeAppWithUserHandler(handler)

	status, body := postJSON(t, app, "/signup", `{"nome":"Ana","email":"ana@x.com","senha":"s3cret!"}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	if body["mensagem"] != msgEmailExists {
		t.Fatalf("unexpected message %v", body["mensagem"])
	}
	if n := repo.Len(); n != 1 {
		t.Fatalf("duplicate signup must not add a user, store holds %d", n)
	}
}

func TestSignup_ContactsStoredAsGiven(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	handler, _ := newTestHandler(repo)
	app := makeAppWithUserHandler(handler)

	status, body := postJSON(t, app, "/signup", `{"nome":"Ana","email":"ana@x.com","senha":"s3cret!","telefones":[
		{"numero":"98765-4321","ddd":"11","tipo":"celular"},
		{"numero":987654321,"ddd":11},
		{"phone":"+1 415 555 0100","extra":{"ramal":"12"}}
	]}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, body)
	}

	stored, err := repo.GetByEmail(context.Background(), "ana@x.com")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if len(stored.Phones) != 3 {
		t.Fatalf("expected 3 contacts, got %+v", stored.Phones)
	}
	if stored.Phones[0]["numero"] != "98765-4321" || stored.Phones[0]["tipo"] != "celular" {
		t.Fatalf("first contact changed: %+v", stored.Phones[0])
	}
	if stored.Phones[1]["numero"] != float64(987654321) || stored.Phones[1]["ddd"] != float64(11) {
		t.Fatalf("numeric contact changed: %+v", stored.Phones[1])
	}
	extra, ok := stored.Phones[2]["extra"].(map[string]any)
	if stored.Phones[2]["phone"] != "+1 415 555 0100" || !ok || extra["ramal"] != "12" {
		t.Fatalf("free-form contact changed: %+v", stored.Phones[2])
	}
}

func TestSignin_SameResponseForUnknownEmailAndWrongPassword(t *testing.T) {
	hash, err := auth.Hash("s3cret!")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	handler, _ := newTestHandler(NewInMemoryRepository([]User{{ID: "u1", Email: "ana@x.com", PasswordHash: hash}}))
	app := makeAppWithUserHandler(handler)

	s1, b1 := postJSON(t, app, "/signin", `{"email":"ana@x.com","senha":"wrong"}`)
	s2, b2 := postJSON(t, app, "/signin", `{"email":"nobody@x.com","senha":"s3cret!"}`)

	if s1 != fiber.StatusUnauthorized || s2 != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", s1, s2)
	}
	if b1["mensagem"] != b2["mensagem"] || b1["mensagem"] != msgInvalidCredentials {
		t.Fatalf("messages differ: %v vs %v", b1, b2)
	}

	s3, b3 := postJSON(t, app, "/signin", `{"email":"ana@x.com","senha":"s3cret!"}`)
	if s3 != fiber.StatusOK {
		t.Fatalf("expected 200 for correct credentials, got %d", s3)
	}
	if b3["ultimo_login"] == nil || b3["token"] == "" {
		t.Fatalf("expected populated ultimo_login and token, got %v", b3)
	}
}

func TestSignin_MissingFields(t *testing.T) {
	handler, _ := newTestHandler(NewInMemoryRepository(nil))
	app := makeAppWithUserHandler(handler)

	status, _ := postJSON(t, app, "/signin", `{"email":"ana@x.com"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestProfile(t *testing.T) {
	repo := NewInMemoryRepository([]User{{ID: "u7", Name: "Jenny", Email: "j@example.com", PasswordHash: "$2a$12$secret"}})
	handler, _ := newTestHandler(repo)
	app := makeAppWithUserHandler(handler)

	// no identity in context
	res, err := app.Test(httptest.NewRequest("GET", "/user", nil))
	if err != nil {
		t.Fatalf("profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected unauthorized status, got %d", res.StatusCode)
	}

	req := httptest.NewRequest("GET", "/user", nil)
	req.Header.Set("X-User-ID", "u7")
	res, err = app.Test(req)
	if err != nil {
		t.Fatalf("authorized profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 OK for authorized profile, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	body := string(b)
	if !strings.Contains(body, `"user"`) || !strings.Contains(body, "j@example.com") {
		t.Fatalf("response body does not contain expected user, got %s", body)
	}
	if strings.Contains(body, "senha") || strings.Contains(body, "$2a$12$secret") {
		t.Fatalf("response body should not expose the password hash: %s", body)
	}

	req = httptest.NewRequest("GET", "/user", nil)
	req.Header.Set("X-User-ID", "gone")
	res, err = app.Test(req)
	if err != nil {
		t.Fatalf("profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", res.StatusCode)
	}
}

func TestStoreFailureIsGeneric500(t *testing.T) {
	handler, _ := newTestHandler(failingRepo{err: errInternalForTest})
	app := makeAppWithUserHandler(handler)

	status, body := postJSON(t, app, "/signin", `{"email":"ana@x.com","senha":"pw"}`)
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if body["mensagem"] != MessageServerError {
		t.Fatalf("unexpected message %v", body["mensagem"])
	}
	if strings.Contains(body["mensagem"].(string), errInternalForTest.Error()) {
		t.Fatalf("internal error leaked to client")
	}
}
