package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"labstation-backend/config"
	"labstation-backend/internal/clock"
	"labstation-backend/internal/model"
	"labstation-backend/internal/mw"
	"labstation-backend/internal/store"
)

const testSecret = "test-secret"

var apiDBSeq int64

func newTestRouter(t *testing.T, clk clock.Clock) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", atomic.AddInt64(&apiDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Station{},
		&model.Reservation{},
		&model.QueueEntry{},
		&model.Notification{},
		&model.PushSubscription{},
	))

	stations := []model.Station{
		{ID: 1, Name: "Station A", Status: model.StationAvailable},
		{ID: 2, Name: "Station B", Status: model.StationAvailable},
	}
	require.NoError(t, db.Create(&stations).Error)
	users := []model.User{
		{ID: 1, Email: "alice@lab.test", Name: "Alice"},
		{ID: 2, Email: "bob@lab.test", Name: "Bob"},
		{ID: 3, Email: "carol@lab.test", Name: "Carol"},
	}
	require.NoError(t, db.Create(&users).Error)

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Auth.TokenSecret = testSecret
	cfg.Auth.AllowedDomains = []string{"lab.test"}

	limiter := mw.NewSignInLimiter(time.Minute, 3, 5*time.Minute)
	appStore := store.NewGormStore(db, clk)
	router := NewRouter(appStore, cfg, nil, LogOTPSender{}, limiter)
	return router, db
}

func bearerToken(t *testing.T, userID int64, role model.Role) string {
	t.Helper()
	claims := mw.IdentityClaims{
		Email: fmt.Sprintf("user%d@lab.test", userID),
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	router, _ := newTestRouter(t, clock.NewFake(base))

	for _, path := range []string{"/api/stations", "/api/reservations", "/api/queue", "/api/notifications"} {
		w := doJSON(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// A token signed with the wrong key is rejected too.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).
		SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	w := doJSON(t, router, http.MethodGet, "/api/stations", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_CreateReservation(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	router, _ := newTestRouter(t, clock.NewFake(base))
	alice := bearerToken(t, 1, model.RoleUser)
	bob := bearerToken(t, 2, model.RoleUser)

	// Missing fields.
	w := doJSON(t, router, http.MethodPost, "/api/reservations", alice, gin.H{"stationId": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Success.
	w = doJSON(t, router, http.MethodPost, "/api/reservations", alice, gin.H{
		"stationId": 1,
		"startTime": base.Add(time.Hour),
		"endTime":   base.Add(2 * time.Hour),
		"notes":     "project work",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["reservation"].(map[string]interface{})
	assert.Equal(t, "pending", created["status"])

	// Overlap reports 409 with the blocking interval.
	w = doJSON(t, router, http.MethodPost, "/api/reservations", bob, gin.H{
		"stationId": 1,
		"startTime": base.Add(90 * time.Minute),
		"endTime":   base.Add(3 * time.Hour),
	})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "conflicting_reservation", body["code"])
	conflict := body["conflictingReservation"].(map[string]interface{})
	assert.NotEmpty(t, conflict["startTime"])
	assert.NotEmpty(t, conflict["endTime"])

	// A second booking by the same user is rejected with 400.
	w = doJSON(t, router, http.MethodPost, "/api/reservations", alice, gin.H{
		"stationId": 2,
		"startTime": base.Add(time.Hour),
		"endTime":   base.Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user_already_booked", decode(t, w)["code"])

	// Unknown station is 404.
	w = doJSON(t, router, http.MethodPost, "/api/reservations", bob, gin.H{
		"stationId": 42,
		"startTime": base.Add(time.Hour),
		"endTime":   base.Add(2 * time.Hour),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_ReleaseAndCancel(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	router, db := newTestRouter(t, clock.NewFake(base))
	alice := bearerToken(t, 1, model.RoleUser)
	bob := bearerToken(t, 2, model.RoleUser)
	carol := bearerToken(t, 3, model.RoleUser)

	w := doJSON(t, router, http.MethodPost, "/api/reservations", alice, gin.H{
		"stationId": 1,
		"startTime": base,
		"endTime":   base.Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := int64(decode(t, w)["reservation"].(map[string]interface{})["id"].(float64))

	// Bob and Carol wait in the queue.
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/queue", bob, nil).Code)
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/queue", carol, nil).Code)

	// Bob cannot release Alice's reservation.
	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/reservations/%d/release", id), bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Alice releases early; both waiters get notified.
	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/reservations/%d/release", id), alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "completed", body["reservation"].(map[string]interface{})["status"])
	assert.Equal(t, float64(2), body["notifiedUsers"])

	var notificationCount int64
	require.NoError(t, db.Model(&model.Notification{}).Count(&notificationCount).Error)
	assert.Equal(t, int64(2), notificationCount)

	// Releasing again is an invalid state.
	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/reservations/%d/release", id), alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_state", decode(t, w)["code"])

	// Cancel of an already completed reservation is AlreadyFinalized.
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/reservations/%d", id), alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "already_finalized", decode(t, w)["code"])

	// Missing reservation is 404.
	w = doJSON(t, router, http.MethodPatch, "/api/reservations/9999/release", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Queue(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	router, _ := newTestRouter(t, clock.NewFake(base))
	alice := bearerToken(t, 1, model.RoleUser)
	bob := bearerToken(t, 2, model.RoleUser)

	w := doJSON(t, router, http.MethodPost, "/api/queue", alice, gin.H{"preferredStationId": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["position"])

	w = doJSON(t, router, http.MethodPost, "/api/queue", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["position"])

	// Double join is rejected.
	w = doJSON(t, router, http.MethodPost, "/api/queue", alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "already_queued", decode(t, w)["code"])

	// Queue listing carries the caller's own position.
	w = doJSON(t, router, http.MethodGet, "/api/queue", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["entries"], 2)
	caller := body["callerPosition"].(map[string]interface{})
	assert.Equal(t, float64(2), caller["position"])
	assert.Equal(t, float64(2), caller["totalInQueue"])

	// Alice leaves; Bob moves up.
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodDelete, "/api/queue", alice, nil).Code)
	w = doJSON(t, router, http.MethodGet, "/api/queue", bob, nil)
	caller = decode(t, w)["callerPosition"].(map[string]interface{})
	assert.Equal(t, float64(1), caller["position"])

	// Leaving twice is a state error.
	w = doJSON(t, router, http.MethodDelete, "/api/queue", alice, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_queued", decode(t, w)["code"])
}

func TestAPI_Notifications(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	router, db := newTestRouter(t, clock.NewFake(base))
	alice := bearerToken(t, 1, model.RoleUser)
	bob := bearerToken(t, 2, model.RoleUser)

	notification := model.Notification{
		UserID:  1,
		Title:   "Station Available!",
		Message: "A station slot has been released. Book now before it's taken!",
		Type:    model.NotifySuccess,
	}
	require.NoError(t, db.Create(&notification).Error)

	w := doJSON(t, router, http.MethodGet, "/api/notifications", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["notifications"], 1)

	// Another user cannot read or mark it.
	w = doJSON(t, router, http.MethodGet, "/api/notifications", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["notifications"])

	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/notifications/%d/read", notification.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/notifications/%d/read", notification.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["notification"].(map[string]interface{})["read"])
}

func TestAPI_SendOTP(t *testing.T) {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	router, _ := newTestRouter(t, clock.NewFake(base))

	// Wrong domain.
	w := doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"email": "someone@elsewhere.test"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Allowed domain passes until the window fills up.
	for i := 0; i < 3; i++ {
		w = doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"email": "alice@lab.test"})
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"email": "alice@lab.test"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// A different identity is unaffected.
	w = doJSON(t, router, http.MethodPost, "/api/auth/otp", "", gin.H{"email": "bob@lab.test"})
	assert.Equal(t, http.StatusOK, w.Code)
}
