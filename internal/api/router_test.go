package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/travel-relation/config"
	"github.com/d60-Lab/travel-relation/internal/api/handler"
	"github.com/d60-Lab/travel-relation/internal/cache"
	"github.com/d60-Lab/travel-relation/internal/repository"
	"github.com/d60-Lab/travel-relation/internal/service"
	"github.com/d60-Lab/travel-relation/internal/testutil"
	"github.com/d60-Lab/travel-relation/pkg/middleware"
)

const testSecret = "test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, rl config.RateLimitConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db, map[string]string{"alice": "Alice", "bob": "Bob", "carol": "Carol"})

	rels := repository.NewRelationshipRepository(db)
	overlays := repository.NewOverlayRepository(db)
	profiles := service.NewProfileService(repository.NewUserRepository(db), overlays, cache.NopProfileCache{})
	store := service.NewRelationshipStore(rels, profiles, cache.NopFriendCache{}, true)
	lifecycle := service.NewLifecycleService(rels, store, overlays, profiles, nil,
		service.LifecycleOptions{CleanupOverlaysOnRemove: true})
	overlay := service.NewOverlayService(overlays, profiles)

	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: testSecret},
		RateLimit: rl,
		Tracing:   config.TracingConfig{ServiceName: "travel-relation-test"},
	}
	return NewRouter(cfg, handler.New(lifecycle, store, overlay))
}

func token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, uid, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, r *gin.Engine, method, path, uid string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, uid))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func listOf[T any](t *testing.T, env envelope) []T {
	t.Helper()
	var data struct {
		List []T `json:"list"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.List
}

func TestRouter_FriendFlow(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{RPS: 100, Burst: 100})

	w, env := do(t, r, http.MethodPost, "/api/v1/friends/requests", "alice",
		gin.H{"to_uid": "bob", "from_username": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var res service.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Sent!", res.Message)

	// 重复发送
	w, env = do(t, r, http.MethodPost, "/api/v1/friends/requests", "alice", gin.H{"to_uid": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Success)
	assert.Equal(t, service.ErrAlreadySent.Error(), res.Message)

	w, env = do(t, r, http.MethodGet, "/api/v1/friends/requests/outgoing", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf[service.FriendRequestView](t, env), 1)

	w, env = do(t, r, http.MethodGet, "/api/v1/friends/requests", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	incoming := listOf[service.FriendRequestView](t, env)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].FromUID)
	assert.Equal(t, "Alice", incoming[0].FromUsername)
	id := incoming[0].ID

	// 只有接收方能接受
	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests/"+id+"/accept", "carol", gin.H{"from_uid": "alice"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests/"+id+"/accept", "bob", gin.H{"from_uid": "alice"})
	require.Equal(t, http.StatusOK, w.Code)

	for _, uid := range []string{"alice", "bob"} {
		w, env = do(t, r, http.MethodGet, "/api/v1/friends", uid, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, listOf[string](t, env), 1, uid)
	}

	// 已接受的记录不能被拒绝
	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests/"+id+"/reject", "bob", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/friends/alice", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = do(t, r, http.MethodGet, "/api/v1/friends", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, listOf[string](t, env))
}

func TestRouter_CancelAndReject(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{RPS: 100, Burst: 100})

	w, _ := do(t, r, http.MethodPost, "/api/v1/friends/requests", "alice", gin.H{"to_uid": "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodDelete, "/api/v1/friends/requests/outgoing/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/v1/friends/requests", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, listOf[service.FriendRequestView](t, env))

	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests", "carol", gin.H{"to_uid": "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	_, env = do(t, r, http.MethodGet, "/api/v1/friends/requests", "bob", nil)
	incoming := listOf[service.FriendRequestView](t, env)
	require.Len(t, incoming, 1)

	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests/"+incoming[0].ID+"/reject", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = do(t, r, http.MethodGet, "/api/v1/friends/requests/outgoing", "carol", nil)
	assert.Empty(t, listOf[service.FriendRequestView](t, env))
}

func TestRouter_RejectsInvalidSend(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{RPS: 100, Burst: 100})

	w, _ := do(t, r, http.MethodPost, "/api/v1/friends/requests", "alice", gin.H{"to_uid": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests", "alice", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests/missing/accept", "bob", gin.H{"from_uid": "alice"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Overlay(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{RPS: 100, Burst: 100})

	w, _ := do(t, r, http.MethodPut, "/api/v1/me/hidden-friends/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPut, "/api/v1/me/hide-pins-from/carol", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/v1/me/overlay", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var overlay struct {
		HiddenFriendIDs []string `json:"hiddenFriendIds"`
		HidePinsFrom    []string `json:"hidePinsFrom"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &overlay))
	assert.Equal(t, []string{"bob"}, overlay.HiddenFriendIDs)
	assert.Equal(t, []string{"carol"}, overlay.HidePinsFrom)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/me/hidden-friends/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = do(t, r, http.MethodGet, "/api/v1/me/overlay", "alice", nil)
	require.NoError(t, json.Unmarshal(env.Data, &overlay))
	assert.Empty(t, overlay.HiddenFriendIDs)

	w, _ = do(t, r, http.MethodPut, "/api/v1/me/hidden-friends/alice", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Auth(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{RPS: 100, Burst: 100})

	w, env := do(t, r, http.MethodGet, "/api/v1/friends", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusUnauthorized, env.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/friends", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SendIsRateLimited(t *testing.T) {
	r := newTestRouter(t, config.RateLimitConfig{RPS: 0.001, Burst: 1})

	w, _ := do(t, r, http.MethodPost, "/api/v1/friends/requests", "alice", gin.H{"to_uid": "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests", "alice", gin.H{"to_uid": "carol"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 其他用户不受影响，读接口不限流
	w, _ = do(t, r, http.MethodPost, "/api/v1/friends/requests", "carol", gin.H{"to_uid": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/api/v1/friends/requests", "bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
