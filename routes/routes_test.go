package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmentRepo "nahio/database/repository/appointment"
	profileRepo "nahio/database/repository/profile"
	"nahio/handlers"
	"nahio/models"
	"nahio/services/account"
	"nahio/services/address"
	"nahio/services/appointment"
	"nahio/services/identity"
	"nahio/services/invitation"
	"nahio/services/notification"
	"nahio/services/profile"
	"nahio/services/session"
	"nahio/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAddress struct{}

func (stubAddress) Lookup(_ context.Context, cep string) (*models.Address, error) {
	if cep != "01310100" {
		return nil, address.ErrNotFound
	}
	return &models.Address{CEP: cep, Street: "Avenida Paulista", District: "Bela Vista", City: "São Paulo", State: "SP"}, nil
}

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gw := identity.NewMemoryGateway()
	profiles := profileRepo.NewMemoryProfileRepo()
	dir := profile.NewDirectory(profiles, utils.NewMemoryKV(), time.Minute, nil)
	inbox := notification.NewMemoryInbox()

	sessions := session.New(gw, profiles, session.NewMemoryStore(), time.Hour, nil)
	require.NoError(t, sessions.Init(context.Background()))
	t.Cleanup(sessions.Dispose)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	hb := &handlers.HandlerBundle{
		Appointments: &appointment.Service{
			Repo:      appointmentRepo.NewMemoryAppointmentRepo(),
			Directory: dir,
			Notifier:  &notification.InboxNotifier{Store: inbox},
			Now:       func() time.Time { return now },
		},
		Sessions:    sessions,
		Accounts:    account.NewService(gw, profiles, dir, nil),
		Invitations: &invitation.Service{Institutions: dir},
		Address:     stubAddress{},
		Inbox:       inbox,
	}

	r := gin.New()
	r.Use(utils.ErrorHandler())
	require.NoError(t, RegisterRoutes(r, hb, sessions, Options{RequestsPerMinute: 1000}))
	return &api{t: t, engine: r}
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, code, body)
	return body["idToken"].(string)
}

func institutionPayload() gin.H {
	return gin.H{
		"institution": gin.H{
			"schoolName": "Escola Alfa", "cnpj": "12345678000190", "phone": "11999990000",
			"email": "contato@alfa.edu.br", "password": "segredo1", "confirmPassword": "segredo1",
		},
		"address": gin.H{
			"cep": "01310-100", "street": "Avenida Paulista", "number": "1000",
			"district": "Bela Vista", "city": "São Paulo", "state": "SP",
		},
		"guardian": gin.H{"name": "Maria", "email": "maria@alfa.edu.br", "provisionalPassword": "provisoria"},
	}
}

func TestAppointmentFlow(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/accounts/scouts", "", gin.H{
		"name": "Carlos", "email": "carlos@nahio.com", "password": "secret1", "confirmPassword": "secret1",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, true, body["success"])

	code, body = a.do(http.MethodPost, "/api/accounts/institutions", "", institutionPayload())
	require.Equal(t, http.StatusCreated, code, body)
	institutionID := body["userId"].(string)

	scout := a.login("carlos@nahio.com", "secret1")
	guardian := a.login("maria@alfa.edu.br", "provisoria")

	code, body = a.do(http.MethodGet, "/api/institutions", scout, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["institutions"], 1)

	code, _ = a.do(http.MethodGet, "/api/institutions", guardian, nil)
	assert.Equal(t, http.StatusForbidden, code)

	availability := "/api/appointments/availability?institutionId=" + institutionID + "&visitDate=2026-03-10&timeSlot=14:00"
	code, body = a.do(http.MethodGet, availability, scout, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["available"])

	draft := gin.H{"institutionId": institutionID, "visitDate": "2026-03-10", "timeSlot": "14:00", "notes": " sub-15 "}
	code, body = a.do(http.MethodPost, "/api/appointments", scout, draft)
	require.Equal(t, http.StatusCreated, code, body)
	apptID := body["appointmentId"].(string)

	code, body = a.do(http.MethodPost, "/api/appointments", scout, draft)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", body["code"])
	assert.Equal(t, false, body["success"])

	code, body = a.do(http.MethodPost, "/api/appointments", scout, gin.H{"institutionId": institutionID, "visitDate": "10/03/2026", "timeSlot": "14:00"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = a.do(http.MethodPost, "/api/appointments/"+apptID+"/confirm", scout, nil)
	assert.Equal(t, http.StatusForbidden, code, body)

	code, body = a.do(http.MethodPost, "/api/appointments/"+apptID+"/confirm", guardian, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "confirmed", body["appointment"].(map[string]any)["status"])

	code, body = a.do(http.MethodPost, "/api/appointments/"+apptID+"/confirm", guardian, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", body["code"])

	code, body = a.do(http.MethodGet, "/api/appointments", guardian, nil)
	require.Equal(t, http.StatusOK, code, body)
	list := body["appointments"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Carlos", list[0].(map[string]any)["scoutName"])

	code, body = a.do(http.MethodGet, "/api/appointments/"+apptID, scout, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Escola Alfa", body["appointment"].(map[string]any)["institutionName"])

	code, body = a.do(http.MethodGet, "/api/notifications", scout, nil)
	require.Equal(t, http.StatusOK, code, body)
	notes := body["notifications"].([]any)
	require.Len(t, notes, 1, "the scout hears about the confirmation")
	noteID := notes[0].(map[string]any)["id"].(string)

	code, _ = a.do(http.MethodPost, "/api/notifications/"+noteID+"/read", scout, nil)
	assert.Equal(t, http.StatusOK, code)
	code, body = a.do(http.MethodGet, "/api/notifications", scout, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["unread"])

	code, body = a.do(http.MethodGet, "/api/notifications", guardian, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["notifications"], 1, "the institution inbox holds the creation")

	code, _ = a.do(http.MethodPost, "/api/notifications/nope/read", scout, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = a.do(http.MethodPost, "/api/appointments/"+apptID+"/cancel", scout, nil)
	require.Equal(t, http.StatusOK, code, body)
	code, body = a.do(http.MethodGet, availability, scout, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["available"], "cancelling releases the slot")
}

func TestAccountEndpoints(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/accounts/scouts", "", gin.H{"name": "Carlos", "email": "bad", "password": "secret1", "confirmPassword": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", body["code"])

	code, _ = a.do(http.MethodPost, "/api/accounts/scouts", "", gin.H{
		"name": "Carlos", "email": "carlos@nahio.com", "password": "secret1", "confirmPassword": "secret1",
	})
	require.Equal(t, http.StatusCreated, code)

	code, body = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "carlos@nahio.com", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_credentials", body["code"])

	token := a.login("carlos@nahio.com", "secret1")

	code, body = a.do(http.MethodGet, "/api/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "olheiro", body["user"].(map[string]any)["userType"])

	code, body = a.do(http.MethodPatch, "/api/accounts/me", token, gin.H{"region": "Nordeste"})
	require.Equal(t, http.StatusOK, code, body)
	scout := body["user"].(map[string]any)["profile"].(map[string]any)["scout"].(map[string]any)
	assert.Equal(t, "Nordeste", scout["region"])

	code, body = a.do(http.MethodPatch, "/api/accounts/me", token, gin.H{"schoolName": "Nope"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, _ = a.do(http.MethodPut, "/api/accounts/me/fcm-token", token, gin.H{"token": "fcm-1"})
	assert.Equal(t, http.StatusOK, code)

	code, body = a.do(http.MethodPost, "/api/auth/password-reset", "", gin.H{"email": "ghost@nahio.com"})
	assert.Equal(t, http.StatusOK, code, body)

	code, body = a.do(http.MethodGet, "/api/address/01310-100", "", nil)
	assert.Equal(t, http.StatusNotFound, code, body)
	code, body = a.do(http.MethodGet, "/api/address/01310100", "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "SP", body["address"].(map[string]any)["state"])

	code, _ = a.do(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = a.do(http.MethodGet, "/api/accounts/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthenticated", body["code"])
}

func TestHealthRoutes(t *testing.T) {
	r := gin.New()
	RegisterHealthRoute(r, []utils.ReadyCheck{{Name: "redis", Check: func(context.Context) error { return assert.AnError }}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis"`)
}

func TestRegisterRoutesRejectsBadProxy(t *testing.T) {
	err := RegisterRoutes(gin.New(), &handlers.HandlerBundle{}, nil, Options{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestCORSOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, corsOrigins(""))
	assert.Equal(t, []string{"https://a.app", "https://b.app"}, corsOrigins(" https://a.app , https://b.app,"))
}
