package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
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
	"labstation-backend/internal/api"
	"labstation-backend/internal/clock"
	"labstation-backend/internal/model"
	"labstation-backend/internal/mw"
	"labstation-backend/internal/store"
)

// TestReservationLifecycle walks one station's booking through its full
// lifecycle over the HTTP surface: booked in the future, activated when
// the clock enters the interval, completed when it leaves, with station
// status reads reflecting each step.
func TestReservationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{
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
	require.NoError(t, db.Create(&model.Station{ID: 1, Name: "Station A", Status: model.StationAvailable}).Error)
	require.NoError(t, db.Create(&model.User{ID: 1, Email: "alice@lab.test", Name: "Alice"}).Error)

	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	fake := clock.NewFake(base)

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Auth.TokenSecret = "integration-secret"

	appStore := store.NewGormStore(db, fake)
	router := api.NewRouter(appStore, cfg, nil, api.LogOTPSender{},
		mw.NewSignInLimiter(time.Minute, 3, 5*time.Minute))

	claims := mw.IdentityClaims{
		Email: "alice@lab.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(1, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Auth.TokenSecret))
	require.NoError(t, err)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var raw []byte
		if body != nil {
			raw, err = json.Marshal(body)
			require.NoError(t, err)
		}
		req := httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	stationState := func() map[string]interface{} {
		w := do(http.MethodGet, "/api/stations", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var out struct {
			Stations []map[string]interface{} `json:"stations"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Len(t, out.Stations, 1)
		return out.Stations[0]
	}

	reservationStatus := func() string {
		w := do(http.MethodGet, "/api/reservations", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var out struct {
			Reservations []map[string]interface{} `json:"reservations"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		require.Len(t, out.Reservations, 1)
		return out.Reservations[0]["status"].(string)
	}

	// Book [now+1h, now+2h): pending, station still free, next-available
	// points at the booking's start.
	w := do(http.MethodPost, "/api/reservations", gin.H{
		"stationId": 1,
		"startTime": base.Add(time.Hour),
		"endTime":   base.Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	state := stationState()
	assert.False(t, state["isOccupied"].(bool))
	assert.Nil(t, state["currentReservation"])
	require.NotNil(t, state["nextAvailableAt"])
	assert.Equal(t, "pending", reservationStatus())

	// At start time the reservation activates and the station occupies.
	fake.Set(base.Add(time.Hour))
	assert.Equal(t, "active", reservationStatus())
	state = stationState()
	assert.True(t, state["isOccupied"].(bool))
	require.NotNil(t, state["currentReservation"])

	// At end time it completes and the station frees up for good.
	fake.Set(base.Add(2 * time.Hour))
	assert.Equal(t, "completed", reservationStatus())
	state = stationState()
	assert.False(t, state["isOccupied"].(bool))
	assert.Nil(t, state["currentReservation"])
	assert.Nil(t, state["nextAvailableAt"])

	// The stored row was corrected by the read path, not just the view.
	var persisted model.Reservation
	require.NoError(t, db.First(&persisted).Error)
	assert.Equal(t, model.ReservationCompleted, persisted.Status)

	// With the old reservation completed, booking again succeeds.
	w = do(http.MethodPost, "/api/reservations", gin.H{
		"stationId": 1,
		"startTime": fake.Now().Add(time.Hour),
		"endTime":   fake.Now().Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
