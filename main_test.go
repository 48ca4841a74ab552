package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parking-violation-monitor/be/config"
	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/realtime"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test", AllowedOrigins: []string{"*"}},
		JWT:    config.JWTConfig{Secret: "test-secret", Expiry: "1h"},
		Upload: config.UploadConfig{Folder: t.TempDir(), MaxContentLen: 1024},
		Detection: config.DetectionConfig{
			ConfidenceThreshold: 0.7,
			MaxVideoStreams:     4,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	hub := realtime.NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return setupRouter(newApp(cfg, zap.NewNop(), database.NewStore(db), hub))
}

func serve(r http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, testConfig(t))

	w := serve(r, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","message":"Parking Violation API is running"}`, w.Body.String())
}

func TestCollectionRoutesWithAndWithoutSlash(t *testing.T) {
	r := newTestRouter(t, testConfig(t))

	for _, path := range []string{"/api/locations", "/api/locations/", "/api/violations", "/api/violations/"} {
		w := serve(r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `[]`, w.Body.String(), path)
	}

	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/locations", `{"name":"Lot A"}`, nil).Code)
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/locations/", `{"name":"Lot B"}`, nil).Code)
}

func TestIngestRoutesDisabledByDefault(t *testing.T) {
	r := newTestRouter(t, testConfig(t))

	w := serve(r, http.MethodPost, "/api/detections/violations", `{"confidence_score":0.9}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBodyTooLarge(t *testing.T) {
	r := newTestRouter(t, testConfig(t))

	body := `{"name":"` + strings.Repeat("x", 2048) + `"}`
	w := serve(r, http.MethodPost, "/api/locations/", body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAuthRequired(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.Required = true
	r := newTestRouter(t, cfg)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/locations/", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/ws", "", nil).Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"operator_id": 1,
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/api/locations/", "", http.Header{"Authorization": {"Bearer " + signed}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func dialWS(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+path, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestRealtimeEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Detection.IngestEnabled = true
	server := httptest.NewServer(newTestRouter(t, cfg))
	t.Cleanup(server.Close)

	for _, path := range []string{"/ws", "/socket.io/"} {
		conn := dialWS(t, server, path)
		greeting := readEvent(t, conn)
		assert.Equal(t, realtime.EventConnected, greeting.Event, path)
		assert.Equal(t, map[string]interface{}{"message": "Connected to server"}, greeting.Data, path)
	}

	conn := dialWS(t, server, "/ws")
	readEvent(t, conn)

	post := func(method, path, body string) *http.Response {
		req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post(http.MethodPost, "/api/locations/", `{"name":"Lot A"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var location map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&location))
	id := location["id"].(string)

	require.Equal(t, http.StatusOK, post(http.MethodPut, "/api/locations/"+id, `{"status":"active"}`).StatusCode)
	event := readEvent(t, conn)
	assert.Equal(t, realtime.EventLocationStatus, event.Event)
	assert.Equal(t, "active", event.Data.(map[string]interface{})["status"])

	require.Equal(t, http.StatusCreated, post(http.MethodPost, "/api/detections/violations",
		`{"location_id":"`+id+`","confidence_score":0.95}`).StatusCode)
	event = readEvent(t, conn)
	assert.Equal(t, realtime.EventViolationAlert, event.Event)
	alert := event.Data.(map[string]interface{})
	assert.Equal(t, id, alert["location_id"])

	violationID := jsonID(t, alert["id"])
	require.Equal(t, http.StatusOK, post(http.MethodPut, "/api/violations/"+violationID, ``).StatusCode)
	event = readEvent(t, conn)
	assert.Equal(t, realtime.EventViolationAcknowledged, event.Event)
	assert.Equal(t, "acknowledged", event.Data.(map[string]interface{})["status"])
}

func jsonID(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestCorsConfig(t *testing.T) {
	all := corsConfig([]string{"http://a.example", "*"})
	assert.True(t, all.AllowAllOrigins)
	assert.Empty(t, all.AllowOrigins)

	listed := corsConfig([]string{"http://a.example"})
	assert.False(t, listed.AllowAllOrigins)
	assert.Equal(t, []string{"http://a.example"}, listed.AllowOrigins)
	assert.True(t, listed.AllowCredentials)
}
