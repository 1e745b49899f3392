package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pedidos/internal/common"
)

func newIdem(t *testing.T) (common.Idem, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return common.Idem{R: client, TTL: time.Minute}, mr
}

func post(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdemRejectsReplay(t *testing.T) {
	idem, mr := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	require.Equal(t, http.StatusCreated, post(h, "k1").Code)
	replay := post(h, "k1")
	require.Equal(t, http.StatusConflict, replay.Code)
	require.JSONEq(t, `{"message":"duplicate request","code":"IDEMPOTENT_REPLAY"}`, replay.Body.String())
	require.Equal(t, http.StatusCreated, post(h, "k2").Code)
	require.Equal(t, http.StatusCreated, post(h, "").Code)
	require.Equal(t, 3, calls)

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusCreated, post(h, "k1").Code)
}

func TestIdemReleasesKeyOnServerError(t *testing.T) {
	idem, _ := newIdem(t)
	status := http.StatusInternalServerError
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))

	require.Equal(t, http.StatusInternalServerError, post(h, "k1").Code)
	status = http.StatusCreated
	require.Equal(t, http.StatusCreated, post(h, "k1").Code)
}

func TestIdemStoreError(t *testing.T) {
	idem, mr := newIdem(t)
	mr.Close()
	rec := post(idem.Middleware(http.NotFoundHandler()), "k1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
