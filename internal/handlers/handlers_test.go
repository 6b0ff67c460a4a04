package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/irrelevantclub/toolkit-backend/internal/auth"
	"github.com/irrelevantclub/toolkit-backend/internal/config"
	"github.com/irrelevantclub/toolkit-backend/internal/handlers"
	"github.com/irrelevantclub/toolkit-backend/internal/notify"
	"github.com/irrelevantclub/toolkit-backend/internal/routes"
	"github.com/irrelevantclub/toolkit-backend/internal/services"
	"github.com/irrelevantclub/toolkit-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type countingSender struct {
	mu       sync.Mutex
	subjects []string
}

func (s *countingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, msg.Subject)
	return nil
}

func (s *countingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subjects)
}

type harness struct {
	app      *fiber.App
	store    *store.MemoryStore
	issuer   *auth.Issuer
	sender   *countingSender
	notifier *notify.Notifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		SecretKey:     testSecret,
		SecretPhrase:  "soy irrelevant club",
		TokenTTL:      config.TokenTTL,
		SenderEmail:   "hola@irrelevant.club",
		NotifyTimeout: time.Second,
		AdminEmails:   "boss@irrelevant.club",
		AdminToken:    "admin-secret",
	}

	mem := store.NewMemoryStore()
	users := services.NewUserService(mem, cfg)
	issuer := auth.NewIssuer(cfg.SecretKey, cfg.TokenTTL)
	phrase, err := auth.NewPhraseVerifier(cfg.SecretPhrase)
	require.NoError(t, err)
	sender := &countingSender{}
	notifier := notify.New(sender, cfg)

	app := fiber.New()
	routes.Setup(app, cfg, issuer, users,
		handlers.NewUserHandler(users, issuer, phrase, notifier),
		handlers.NewHealthHandler(mem),
		handlers.NewAdminHandler(users),
	)
	t.Cleanup(notifier.Wait)

	return &harness{app: app, store: mem, issuer: issuer, sender: sender, notifier: notifier}
}

func (h *harness) do(t *testing.T, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func ana() map[string]any {
	return map[string]any{
		"name":               "Ana",
		"email":              "ana@x.com",
		"country":            "CO",
		"userType":           "Persona",
		"interestArea":       "AI",
		"toolsUsed":          "none",
		"projectDescription": "demo",
	}
}

func TestHome(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "online", body["status"])
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRegister_Created(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, http.MethodPost, "/api/users/register", ana(), nil)
	require.Equal(t, http.StatusCreated, status)

	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, "ana@x.com", body["email"])
	assert.Equal(t, "Persona", body["userType"])
	assert.Equal(t, "CO", body["country"])

	token, _ := body["token"].(string)
	identity, err := h.issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, identity.Subject)
	assert.False(t, identity.SpecialAccess)

	h.notifier.Wait()
	assert.Equal(t, 2, h.sender.count(), "welcome mail and admin alert")
	assert.Equal(t, 1, h.store.Count())
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newHarness(t)

	status, _ := h.do(t, http.MethodPost, "/api/users/register", ana(), nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := h.do(t, http.MethodPost, "/api/users/register", ana(), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Este email ya está registrado", body["message"])
	assert.Equal(t, 1, h.store.Count())
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"empty object", "{}", "No se proporcionaron datos"},
		{"null", "null", "No se proporcionaron datos"},
		{"not json", "name=Ana", "No se proporcionaron datos"},
		{"missing name", map[string]any{"email": "a@b.co"}, "El campo name es requerido"},
		{
			"bad email",
			map[string]any{"name": "A", "email": "nope", "country": "CO", "userType": "Persona"},
			"El formato del email no es válido",
		},
		{
			"company field",
			map[string]any{"name": "A", "email": "a@b.co", "country": "CO", "userType": "Empresa", "company": "X"},
			"El campo automationNeeds es requerido para empresas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			status, body := h.do(t, http.MethodPost, "/api/users/register", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.message, body["message"])
			assert.Zero(t, h.store.Count())
			assert.Zero(t, h.sender.count())
		})
	}
}

func TestVerifyPhrase(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		status  int
		success any
		message string
	}{
		{"exact", map[string]any{"secretPhrase": "soy irrelevant club"}, http.StatusOK, true, "Frase secreta correcta"},
		{"case and spaces", map[string]any{"secretPhrase": "  SOY Irrelevant CLUB "}, http.StatusOK, true, "Frase secreta correcta"},
		{"wrong", map[string]any{"secretPhrase": "abre sesamo"}, http.StatusUnauthorized, false, "Frase secreta incorrecta"},
		{"empty", map[string]any{"secretPhrase": ""}, http.StatusUnauthorized, false, "Frase secreta incorrecta"},
		{"absent", map[string]any{}, http.StatusBadRequest, nil, "Frase secreta no proporcionada"},
		{"not a string", map[string]any{"secretPhrase": 42}, http.StatusBadRequest, nil, "Frase secreta no proporcionada"},
		{"no body", nil, http.StatusBadRequest, nil, "Frase secreta no proporcionada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			status, body := h.do(t, http.MethodPost, "/api/users/verify-phrase", tt.body, nil)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, tt.success, body["success"])

			if tt.status == http.StatusOK {
				identity, err := h.issuer.Verify(body["token"].(string))
				require.NoError(t, err)
				assert.Equal(t, auth.SpecialAccessSubject, identity.Subject)
				assert.True(t, identity.SpecialAccess)
			} else {
				assert.NotContains(t, body, "token")
			}
		})
	}
}

func TestMe(t *testing.T) {
	h := newHarness(t)

	_, reg := h.do(t, http.MethodPost, "/api/users/register", ana(), nil)
	token := reg["token"].(string)

	status, body := h.do(t, http.MethodGet, "/api/users/me", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, reg["id"], body["userId"])
	assert.Equal(t, false, body["isSpecialAccess"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ana@x.com", user["email"])
	assert.Equal(t, false, user["isVerified"])
}

func TestMe_SpecialAccess(t *testing.T) {
	h := newHarness(t)
	token, err := h.issuer.Issue(auth.SpecialAccessSubject)
	require.NoError(t, err)

	status, body := h.do(t, http.MethodGet, "/api/users/me", nil, bearer(token))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.SpecialAccessSubject, body["userId"])
	assert.Equal(t, true, body["isSpecialAccess"])
	assert.NotContains(t, body, "user")
}

func TestMe_UnknownUser(t *testing.T) {
	h := newHarness(t)
	token, err := h.issuer.Issue("gone")
	require.NoError(t, err)

	status, body := h.do(t, http.MethodGet, "/api/users/me", nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Usuario no encontrado", body["message"])
}

func TestAdminLookup(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/api/users/register", ana(), nil)

	boss := ana()
	boss["email"] = "boss@irrelevant.club"
	_, bossReg := h.do(t, http.MethodPost, "/api/users/register", boss, nil)
	_, anaToken := h.do(t, http.MethodPost, "/api/users/register", func() map[string]any {
		m := ana()
		m["email"] = "other@x.com"
		return m
	}(), nil)

	t.Run("admin token header", func(t *testing.T) {
		status, body := h.do(t, http.MethodGet, "/api/admin/users?email=ana@x.com", nil,
			map[string]string{"X-Admin-Token": "admin-secret"})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Ana", body["name"])
	})

	t.Run("admin email bearer", func(t *testing.T) {
		status, body := h.do(t, http.MethodGet, "/api/admin/users?email=ana@x.com", nil,
			bearer(bossReg["token"].(string)))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ana@x.com", body["email"])
	})

	t.Run("non-admin bearer", func(t *testing.T) {
		status, _ := h.do(t, http.MethodGet, "/api/admin/users?email=ana@x.com", nil,
			bearer(anaToken["token"].(string)))
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("wrong admin token", func(t *testing.T) {
		status, body := h.do(t, http.MethodGet, "/api/admin/users?email=ana@x.com", nil,
			map[string]string{"X-Admin-Token": "guess"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Token no proporcionado", body["message"])
	})

	t.Run("missing email", func(t *testing.T) {
		status, _ := h.do(t, http.MethodGet, "/api/admin/users", nil,
			map[string]string{"X-Admin-Token": "admin-secret"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown email", func(t *testing.T) {
		status, _ := h.do(t, http.MethodGet, "/api/admin/users?email=nobody@x.com", nil,
			map[string]string{"X-Admin-Token": "admin-secret"})
		assert.Equal(t, http.StatusNotFound, status)
	})
}
