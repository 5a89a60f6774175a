package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/congo-pay/qrwallet/internal/config"
	"github.com/congo-pay/qrwallet/internal/middleware"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop())})
	cfg := config.Config{
		AppEnv:         "test",
		JWTSecret:      "test-secret-test-secret-test-secret",
		AccessTokenTTL: 30 * time.Minute,
		RequestTTL:     15 * time.Minute,
		RequestMaxTTL:  24 * time.Hour,
		LoginRateLimit: 5,
		PublicBaseURL:  "https://pay.example.com/api/v1",
	}
	require.NoError(t, Setup(app, Deps{Cfg: cfg}))
	return app
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func signUp(t *testing.T, app *fiber.App, username, phone string) (walletID, token string) {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"phoneNumber": phone,
		"username":    username,
		"email":       username + "@example.com",
		"full_name":   username + " person",
		"password":    "Passw0rd!x",
	})
	require.Equal(t, http.StatusCreated, status, body)
	walletID, _ = body["wallet_id"].(string)

	status, body = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "Passw0rd!x",
	})
	require.Equal(t, http.StatusOK, status, body)
	token, _ = body["access_token"].(string)
	require.NotEmpty(t, token)
	return walletID, token
}

func TestPaymentRequestFlow(t *testing.T) {
	app := newTestApp(t)
	_, payeeToken := signUp(t, app, "alice", "0610000001")
	_, payerToken := signUp(t, app, "bobby", "0610000002")

	status, body := call(t, app, http.MethodPost, "/api/v1/wallet/add-funds", payerToken, map[string]any{"amount": 1000})
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1000, body["new_balance"])

	status, body = call(t, app, http.MethodPost, "/api/v1/payments/requests", payeeToken, map[string]any{"amount": "300", "description": "lunch"})
	require.Equal(t, http.StatusCreated, status, body)
	id, _ := body["request_id"].(string)
	require.NotEmpty(t, id)
	assert.Contains(t, body["qr_url"], "https://pay.example.com/api/v1/payments/scan?request_id=")

	status, body = call(t, app, http.MethodGet, "/api/v1/payments/requests/"+id+"/status", "", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "pending", body["status"])

	status, body = call(t, app, http.MethodGet, "/api/v1/payments/requests/"+id+"/confirmation", payerToken, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, app, http.MethodPost, "/api/v1/payments/requests/"+id+"/resolve", payerToken, map[string]string{"action": "accept"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "completed", body["status"])
	assert.NotEmpty(t, body["transfer_id"])

	status, body = call(t, app, http.MethodPost, "/api/v1/payments/requests/"+id+"/resolve", payerToken, map[string]string{"action": "accept"})
	require.Equal(t, http.StatusBadRequest, status, body)
	assert.Equal(t, "completed", body["status"])

	_, body = call(t, app, http.MethodGet, "/api/v1/wallet/balance", payerToken, nil)
	assert.EqualValues(t, 700, body["balance"])
	_, body = call(t, app, http.MethodGet, "/api/v1/wallet/balance", payeeToken, nil)
	assert.EqualValues(t, 300, body["balance"])

	status, body = call(t, app, http.MethodGet, "/api/v1/payments/requests?status=completed", payeeToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 1, body["count"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/api/v1/wallet/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "missing_token", body["reason"])

	status, _ = call(t, app, http.MethodGet, "/api/v1/wallet/balance", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterDuplicateAndBadLogin(t *testing.T) {
	app := newTestApp(t)
	signUp(t, app, "carol", "0610000003")

	status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"phoneNumber": "0610000004",
		"username":    "carol",
		"email":       "other@example.com",
		"full_name":   "carol again",
		"password":    "Passw0rd!x",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Username already exists", body["message"])

	status, _ = call(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "carol", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWalletSendAndProfile(t *testing.T) {
	app := newTestApp(t)
	_, aToken := signUp(t, app, "dave_w", "0610000005")
	bWallet, bToken := signUp(t, app, "erin_w", "0610000006")

	call(t, app, http.MethodPost, "/api/v1/wallet/add-funds", aToken, map[string]any{"amount": "250"})

	status, body := call(t, app, http.MethodPost, "/api/v1/wallet/send", aToken, map[string]any{"to_wallet_id": bWallet, "amount": 100})
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 150, body["new_from_balance"])

	status, body = call(t, app, http.MethodPost, "/api/v1/wallet/send", aToken, map[string]any{"to_wallet_id": "missing", "amount": 1})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "recipient_not_found", body["reason"])

	status, body = call(t, app, http.MethodPost, "/api/v1/wallet/withdraw", bToken, map[string]any{"amount": 101})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient_funds", body["reason"])

	status, body = call(t, app, http.MethodGet, "/api/v1/wallet/profile", bToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	profile, _ := body["profile"].(map[string]any)
	assert.Equal(t, "erin_w", profile["username"])
	assert.EqualValues(t, 1, profile["transactions_count"])
}

func TestHealthAndPing(t *testing.T) {
	app := newTestApp(t)
	status, _ := call(t, app, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodGet, "/api/v1/ping", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestSetupRequiresBackendsOutsideDevelopment(t *testing.T) {
	app := fiber.New()
	err := Setup(app, Deps{Cfg: config.Config{AppEnv: "production"}})
	require.Error(t, err)
}

func TestCancelThenArchive(t *testing.T) {
	app := newTestApp(t)
	_, token := signUp(t, app, "frank", "0610000007")

	status, body := call(t, app, http.MethodPost, "/api/v1/payments/requests", token, map[string]any{"amount": 50, "expires_in_minutes": 5})
	require.Equal(t, http.StatusCreated, status, body)
	id, _ := body["request_id"].(string)

	status, body = call(t, app, http.MethodPost, "/api/v1/payments/requests/"+id+"/archive", token, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = call(t, app, http.MethodDelete, "/api/v1/payments/requests/"+id, token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "cancelled", body["status"])

	status, body = call(t, app, http.MethodPost, "/api/v1/payments/requests/"+id+"/archive", token, nil)
	require.Equal(t, http.StatusOK, status, body)

	_, body = call(t, app, http.MethodGet, "/api/v1/payments/requests", token, nil)
	assert.EqualValues(t, 0, body["count"])
}
