package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/stockflow/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stockflow/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "stockflow-test"
	testExpMin    = 60
)

// buildTestApp: AuthMiddleware + RequireRole + handler que responde 200.
func buildTestApp(allowedRoles ...string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})
	app.Get("/protected",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"ok":   true,
				"role": apphttp.GetRole(c),
			})
		},
	)
	return app
}

func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		header   func(t *testing.T) string
		status   int
		wantCode string
	}{
		{
			name:    "admin en ruta admin",
			allowed: []string{pkgjwt.RoleAdmin},
			header:  func(t *testing.T) string { return tokenForRole(t, pkgjwt.RoleAdmin) },
			status:  http.StatusOK,
		},
		{
			name:    "operator en ruta admin u operator",
			allowed: []string{pkgjwt.RoleAdmin, pkgjwt.RoleOperator},
			header:  func(t *testing.T) string { return tokenForRole(t, pkgjwt.RoleOperator) },
			status:  http.StatusOK,
		},
		{
			name:     "viewer bloqueado en ruta admin",
			allowed:  []string{pkgjwt.RoleAdmin},
			header:   func(t *testing.T) string { return tokenForRole(t, pkgjwt.RoleViewer) },
			status:   http.StatusForbidden,
			wantCode: "FORBIDDEN",
		},
		{
			name:     "token sin rol",
			allowed:  []string{pkgjwt.RoleAdmin},
			header:   func(t *testing.T) string { return tokenForRole(t, "") },
			status:   http.StatusUnauthorized,
			wantCode: "MISSING_ROLE",
		},
		{
			name:     "sin header",
			allowed:  []string{pkgjwt.RoleAdmin},
			header:   func(*testing.T) string { return "" },
			status:   http.StatusUnauthorized,
			wantCode: "MISSING_TOKEN",
		},
		{
			name:     "token malformado",
			allowed:  []string{pkgjwt.RoleAdmin},
			header:   func(*testing.T) string { return "Bearer token.invalido.aqui" },
			status:   http.StatusUnauthorized,
			wantCode: "INVALID_TOKEN",
		},
		{
			name:     "esquema distinto de Bearer",
			allowed:  []string{pkgjwt.RoleAdmin},
			header:   func(*testing.T) string { return "Basic dXNlcjpwYXNz" },
			status:   http.StatusUnauthorized,
			wantCode: "INVALID_TOKEN",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := buildTestApp(tt.allowed...)
			resp := doRequest(t, app, tt.header(t))
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.wantCode != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Contains(t, string(body), tt.wantCode)
			}
		})
	}
}

func TestAuthMiddleware_ExtractaClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": apphttp.GetUserID(c),
			"role":    apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", tokenForRole(t, pkgjwt.RoleOperator))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, pkgjwt.RoleOperator, body["role"])
}

func TestJWT_GenerateAndParse_ConRole(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleViewer, testIssuer, testExpMin)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, role, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
	assert.Equal(t, pkgjwt.RoleViewer, role)
}

func TestJWT_TokenExpirado_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse(testJWTSecret, tok)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestJWT_SecretIncorrecto_RetornaError(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("otro-secret-completamente-distinto", tok)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
}
