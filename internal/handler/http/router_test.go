package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yash24113/shofy-listsync/internal/cache"
	"github.com/yash24113/shofy-listsync/internal/controller"
	"github.com/yash24113/shofy-listsync/internal/event"
	lsredis "github.com/yash24113/shofy-listsync/internal/localstore/redis"
	"github.com/yash24113/shofy-listsync/internal/remote"
	"github.com/yash24113/shofy-listsync/internal/session"
	"github.com/yash24113/shofy-listsync/internal/syncer"
	"github.com/yash24113/shofy-listsync/pkg/health"
	"github.com/yash24113/shofy-listsync/pkg/httpclient"
)

// fakeRemoteService emulates the remote list service's HTTP API, envelope
// included.
type fakeRemoteService struct {
	mu       sync.Mutex
	cart     map[string]int // productID -> quantity
	wishlist []string
}

func newFakeRemoteService() *fakeRemoteService {
	return &fakeRemoteService{cart: make(map[string]int)}
}

func (f *fakeRemoteService) wishlistIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.wishlist...)
}

func (f *fakeRemoteService) router() http.Handler {
	r := chi.NewRouter()

	ok := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}

	r.Get("/cart/user/{userId}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		items := make([]map[string]any, 0, len(f.cart))
		for id, qty := range f.cart {
			items = append(items, map[string]any{"productId": id, "quantity": qty})
		}
		f.mu.Unlock()
		ok(w, map[string]any{"items": items})
	})
	r.Post("/cart/add", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.cart[body.ProductID] = body.Quantity
		f.mu.Unlock()
		ok(w, nil)
	})
	r.Put("/cart/update/{productId}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Quantity int `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.cart[chi.URLParam(r, "productId")] = body.Quantity
		f.mu.Unlock()
		ok(w, nil)
	})
	r.Delete("/cart/remove/{productId}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		delete(f.cart, chi.URLParam(r, "productId"))
		f.mu.Unlock()
		ok(w, nil)
	})
	r.Delete("/cart/clear", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.cart = make(map[string]int)
		f.mu.Unlock()
		ok(w, nil)
	})

	r.Get("/wishlist/{userId}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		ids := append([]string(nil), f.wishlist...)
		f.mu.Unlock()
		ok(w, map[string]any{"productIds": ids})
	})
	r.Put("/wishlist/{userId}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProductIDs []string `json:"productIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.wishlist = body.ProductIDs
		f.mu.Unlock()
		ok(w, nil)
	})

	return r
}

type apiFixture struct {
	api    http.Handler
	remote *fakeRemoteService
	engine *syncer.Engine
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	svc := newFakeRemoteService()
	backend := httptest.NewServer(svc.router())
	t.Cleanup(backend.Close)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := lsredis.NewStore(client, "instance-api", logger)
	sess := session.NewManager(store, logger)
	bus := event.NewBus()

	httpc := httpclient.New(httpclient.DefaultConfig())
	cartAPI := remote.NewCartClient(httpc, backend.URL)
	wishlistAPI := remote.NewWishlistClient(httpc, backend.URL)

	mover := controller.NewMover(store, cartAPI, sess, logger)
	cartCtl := controller.NewCartController(cache.New(), cartAPI, sess, mover, nil, bus, logger)
	wishlistCtl := controller.NewWishlistController(cache.New(), store, wishlistAPI, sess, mover, nil, bus, logger)
	engine := syncer.New(store, wishlistAPI, sess, nil, bus, mover, "instance-api", logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = engine.Run(ctx) }()

	api := NewRouter(cartCtl, wishlistCtl, sess, engine, health.NewHandler(), logger)
	return &apiFixture{api: api, remote: svc, engine: engine}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.api.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) ListView {
	t.Helper()
	var env struct {
		Data ListView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func (f *apiFixture) login(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/session", map[string]string{
		"user_id":    "user-1",
		"session_id": "sess-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_GuestWishlistFlow(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/wishlist/items", map[string]any{
		"product_id": "p-1",
		"title":      "Red Silk Saree",
		"slug":       "red-silk-saree",
		"color":      "Red",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeView(t, f.do(t, http.MethodGet, "/api/v1/wishlist/", nil))
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "p-1", view.Rows[0].ProductID)
	assert.False(t, view.Empty)

	// Guests never reach the remote wishlist.
	assert.Empty(t, f.remote.wishlistIDs())
}

func TestAPI_WishlistFilterMarksHiddenRows(t *testing.T) {
	f := setupAPI(t)

	for _, item := range []map[string]any{
		{"product_id": "p-1", "title": "Red Silk Saree"},
		{"product_id": "p-2", "title": "Blue Cotton Saree"},
	} {
		rec := f.do(t, http.MethodPost, "/api/v1/wishlist/items", item)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	view := decodeView(t, f.do(t, http.MethodGet, "/api/v1/wishlist/?q=silk", nil))
	require.Len(t, view.Rows, 2)
	assert.Equal(t, 1, view.VisibleCount)
	assert.False(t, view.Empty)

	view = decodeView(t, f.do(t, http.MethodGet, "/api/v1/wishlist/?q=georgette", nil))
	assert.Equal(t, 0, view.VisibleCount)
	assert.True(t, view.Empty)
	// Filtering hides rows, it does not remove them.
	assert.Len(t, view.Rows, 2)
}

func TestAPI_LoginMigratesGuestWishlist(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/wishlist/items", map[string]any{"product_id": "p-a"})
	require.Equal(t, http.StatusOK, rec.Code)
	f.remote.mu.Lock()
	f.remote.wishlist = []string{"p-b"}
	f.remote.mu.Unlock()

	f.login(t)

	assert.Eventually(t, func() bool {
		ids := f.remote.wishlistIDs()
		return len(ids) == 2 && f.engine.State() == syncer.StateSynced
	}, 3*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, []string{"p-a", "p-b"}, f.remote.wishlistIDs())
}

func TestAPI_CartFlow(t *testing.T) {
	f := setupAPI(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{
		"product_id": "p-1",
		"title":      "Red Silk Saree",
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, 1, view.Rows[0].Quantity)

	rec = f.do(t, http.MethodPost, "/api/v1/cart/items/p-1/increment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	assert.Equal(t, 2, view.Rows[0].Quantity)

	// Decrement below one is a no-op.
	f.do(t, http.MethodPost, "/api/v1/cart/items/p-1/decrement", nil)
	rec = f.do(t, http.MethodPost, "/api/v1/cart/items/p-1/decrement", nil)
	view = decodeView(t, rec)
	assert.Equal(t, 1, view.Rows[0].Quantity)
}

func TestAPI_CartRemoveMovesToWishlist(t *testing.T) {
	f := setupAPI(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": "p-1", "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/cart/items/p-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeView(t, rec).Rows)

	view := decodeView(t, f.do(t, http.MethodGet, "/api/v1/wishlist/", nil))
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "p-1", view.Rows[0].ProductID)
	assert.Contains(t, f.remote.wishlistIDs(), "p-1")
}

func TestAPI_LifecycleTrigger(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/lifecycle", map[string]string{"event": "focus"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/lifecycle", map[string]string{"event": "blur"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_SessionStateAndLogout(t *testing.T) {
	f := setupAPI(t)

	var env struct {
		Data SessionView `json:"data"`
	}
	rec := f.do(t, http.MethodGet, "/api/v1/session", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Data.SignedIn)
	assert.Equal(t, "guest", env.Data.SyncState)

	f.login(t)
	rec = f.do(t, http.MethodDelete, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/session", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Data.SignedIn)
}

func TestAPI_ValidationFailure(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/wishlist/items", map[string]any{"title": "No ID"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
