package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/ratelimit"
	"themed-storefront/internal/storage"
	"themed-storefront/internal/theme"
)

type fixture struct {
	handler http.Handler
	store   *theme.Store
	prefs   *storage.MemoryStore
	fetches *atomic.Int32
}

var sampleProducts = []catalog.Product{
	{ID: 1, Title: "Backpack", Price: decimal.RequireFromString("109.95"), Category: "bags", Image: "https://img.example/1.jpg", Rating: catalog.Rating{Rate: 3.9, Count: 120}},
	{ID: 2, Title: "T-Shirt", Price: decimal.RequireFromString("22.3"), Category: "clothing"},
}

func newFixture(t *testing.T, source catalog.SourceFunc, limiter *ratelimit.Limiter) fixture {
	t.Helper()
	prefs := storage.NewMemoryStore()
	store := theme.NewStore(prefs, theme.WithLogger(zerolog.Nop()))
	fetches := &atomic.Int32{}
	counted := catalog.SourceFunc(func(ctx context.Context) ([]catalog.Product, error) {
		fetches.Add(1)
		return source(ctx)
	})
	h, err := NewHandler(Options{
		Store:     store,
		Cache:     catalog.NewCache(counted, catalog.WithCacheLogger(zerolog.Nop())),
		Limiter:   limiter,
		Logger:    zerolog.Nop(),
		Heartbeat: time.Hour,
	})
	require.NoError(t, err)
	return fixture{handler: h.Routes(), store: store, prefs: prefs, fetches: fetches}
}

func okSource(context.Context) ([]catalog.Product, error) { return sampleProducts, nil }

func failingSource(context.Context) ([]catalog.Product, error) {
	return nil, errors.New("connection refused")
}

func do(h http.Handler, method, target string, body string, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandlerRequiresCollaborators(t *testing.T) {
	_, err := NewHandler(Options{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, okSource, nil)
	rec := do(f.handler, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHomeRendersProductsInActiveTheme(t *testing.T) {
	f := newFixture(t, okSource, nil)
	require.NoError(t, f.store.SetCurrent(theme.Pixelated))

	rec := do(f.handler, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `data-theme="theme3"`)
	assert.Contains(t, body, "--color-primary: "+theme.MustGet(theme.Pixelated).Colors.Primary)
	assert.Contains(t, body, "card card--pixelated rainbow")
	assert.Contains(t, body, "$109.95")
	assert.Contains(t, body, "$22.30")
	assert.Contains(t, body, "/assets/placeholder.svg")
	assert.Contains(t, body, "Add to Cart")
	assert.Contains(t, body, `<option value="theme3" selected>`)
}

func TestHomeRendersFailurePanel(t *testing.T) {
	f := newFixture(t, failingSource, nil)

	rec := do(f.handler, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "panel--failure")
	assert.Contains(t, rec.Body.String(), "Products unavailable")
}

func TestNavigationFollowsThemeLayout(t *testing.T) {
	f := newFixture(t, okSource, nil)

	rec := do(f.handler, http.MethodGet, "/about", "", "")
	body := rec.Body.String()
	assert.Contains(t, body, `class="topnav"`)
	assert.Contains(t, body, "layout--topnav")
	assert.Contains(t, body, `<a href="/about" class="active" aria-current="page">About</a>`)

	require.NoError(t, f.store.SetCurrent(theme.Dark))
	rec = do(f.handler, http.MethodGet, "/contact", "", "")
	body = rec.Body.String()
	assert.NotContains(t, body, `class="topnav"`)
	assert.Contains(t, body, "layout--sidebar")
	assert.Contains(t, body, "Contact Us")
}

func TestPagesDoNotFetchProducts(t *testing.T) {
	f := newFixture(t, okSource, nil)
	do(f.handler, http.MethodGet, "/about", "", "")
	do(f.handler, http.MethodGet, "/contact", "", "")
	assert.Zero(t, f.fetches.Load())

	rec := do(f.handler, http.MethodGet, "/api/products/status", "", "")
	assert.JSONEq(t, `{"state":"idle"}`, rec.Body.String())
}

func TestSelectThemeFormPersistsAndRedirects(t *testing.T) {
	f := newFixture(t, okSource, nil)
	form := url.Values{"theme": {" Theme2 "}, "return": {"/contact"}}

	rec := do(f.handler, http.MethodPost, "/theme", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact", rec.Header().Get("Location"))

	id, _ := f.store.Current()
	assert.Equal(t, theme.Dark, id)
	saved, err := f.prefs.Get(theme.PreferenceKey)
	require.NoError(t, err)
	assert.Equal(t, "theme2", saved)
}

func TestSelectThemeFormRejectsUnknown(t *testing.T) {
	f := newFixture(t, okSource, nil)
	form := url.Values{"theme": {"theme9"}}

	rec := do(f.handler, http.MethodPost, "/theme", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not an available theme")

	id, _ := f.store.Current()
	assert.Equal(t, theme.Minimal, id)
}

func TestReturnPathOnlyAllowsRoutedPages(t *testing.T) {
	assert.Equal(t, "/about", returnPath("/about"))
	assert.Equal(t, "/", returnPath("https://evil.example"))
	assert.Equal(t, "/", returnPath("//evil.example"))
	assert.Equal(t, "/", returnPath(""))
}

func TestSidebarToggle(t *testing.T) {
	f := newFixture(t, okSource, nil)

	rec := do(f.handler, http.MethodPost, "/sidebar/toggle", url.Values{"return": {"/about"}}.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/about", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sidebarCookie, cookies[0].Name)
	assert.Equal(t, "closed", cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.AddCookie(cookies[0])
	own := httptest.NewRecorder()
	f.handler.ServeHTTP(own, req)
	assert.Contains(t, own.Body.String(), "sidebar--closed")

	other := do(f.handler, http.MethodGet, "/about", "", "")
	assert.NotContains(t, other.Body.String(), "sidebar--closed", "other visitors keep their own sidebar")

	req = httptest.NewRequest(http.MethodPost, "/sidebar/toggle", nil)
	req.AddCookie(cookies[0])
	reopened := httptest.NewRecorder()
	f.handler.ServeHTTP(reopened, req)
	require.Len(t, reopened.Result().Cookies(), 1)
	assert.Equal(t, "open", reopened.Result().Cookies()[0].Value)
}

func TestThemeAPI(t *testing.T) {
	f := newFixture(t, okSource, nil)

	rec := do(f.handler, http.MethodGet, "/api/theme", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state themeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, theme.Minimal, state.Current)
	assert.Len(t, state.Themes, 3)

	rec = do(f.handler, http.MethodPut, "/api/theme", `{"theme":"theme2"}`, "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, theme.Dark, state.Current)
	assert.True(t, state.Config.Layout.HasSidebar)
}

func TestThemeAPIRejectsInvalidBodies(t *testing.T) {
	f := newFixture(t, okSource, nil)

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "unknown theme", body: `{"theme":"theme9"}`, status: http.StatusBadRequest, code: "INVALID_THEME"},
		{name: "empty theme", body: `{"theme":""}`, status: http.StatusBadRequest, code: "INVALID_THEME"},
		{name: "malformed", body: `{"theme":`, status: http.StatusBadRequest, code: "BAD_JSON"},
		{name: "unknown field", body: `{"theme":"theme2","extra":1}`, status: http.StatusBadRequest, code: "BAD_JSON"},
		{name: "trailing object", body: `{"theme":"theme2"}{}`, status: http.StatusBadRequest, code: "BAD_JSON"},
		{name: "too large", body: `{"theme":"` + strings.Repeat("x", 2048) + `"}`, status: http.StatusRequestEntityTooLarge, code: "BODY_TOO_LARGE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(f.handler, http.MethodPut, "/api/theme", tc.body, "application/json")
			assert.Equal(t, tc.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
		})
	}

	id, _ := f.store.Current()
	assert.Equal(t, theme.Minimal, id)
}

func TestProductsAPI(t *testing.T) {
	f := newFixture(t, okSource, nil)

	rec := do(f.handler, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("109.95")))

	do(f.handler, http.MethodGet, "/api/products", "", "")
	do(f.handler, http.MethodGet, "/", "", "")
	assert.Equal(t, int32(1), f.fetches.Load(), "one fetch per process")

	rec = do(f.handler, http.MethodGet, "/api/products/status", "", "")
	assert.JSONEq(t, `{"state":"resolved"}`, rec.Body.String())
}

func TestProductsAPIFailure(t *testing.T) {
	f := newFixture(t, failingSource, nil)

	for range 2 {
		rec := do(f.handler, http.MethodGet, "/api/products", "", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "PRODUCTS_UNAVAILABLE")
	}
	assert.Equal(t, int32(1), f.fetches.Load(), "failures are not retried")
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, okSource, nil)

	rec := do(f.handler, http.MethodGet, "/cart", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not exist")

	rec = do(f.handler, http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, okSource, nil)
	rec := do(f.handler, http.MethodDelete, "/api/theme", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t, okSource, nil)
	rec := do(f.handler, http.MethodGet, "/assets/site.css", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "--color-primary")
}

func TestRateLimitPerClient(t *testing.T) {
	f := newFixture(t, okSource, ratelimit.New(60, 2))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/about", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.1:1003"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "health checks are not throttled")
}

func TestThemeEventsStream(t *testing.T) {
	f := newFixture(t, okSource, nil)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/theme", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	assert.Equal(t, theme.Minimal, first.Current)

	require.NoError(t, f.store.SetCurrent(theme.Dark))
	second := readEvent(t, reader)
	assert.Equal(t, theme.Minimal, second.Previous)
	assert.Equal(t, theme.Dark, second.Current)
	assert.Equal(t, "Dark", second.Config.DisplayName)
}

func readEvent(t *testing.T, r *bufio.Reader) themeEvent {
	t.Helper()
	var name string
	var data []byte
	for {
		line, err := r.ReadBytes('\n')
		require.NoError(t, err)
		line = bytes.TrimRight(line, "\n")
		switch {
		case len(line) == 0:
			if name == "theme" {
				var ev themeEvent
				require.NoError(t, json.Unmarshal(data, &ev))
				return ev
			}
			name, data = "", nil
		case bytes.HasPrefix(line, []byte("event: ")):
			name = string(bytes.TrimPrefix(line, []byte("event: ")))
		case bytes.HasPrefix(line, []byte("data: ")):
			data = bytes.TrimPrefix(line, []byte("data: "))
		}
	}
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.Equal(t, http.StatusInternalServerError, mapError(errors.New("boom")).Status)

	friendly := &FriendlyError{Code: "X", Message: "x", Status: http.StatusTeapot}
	assert.Same(t, friendly, mapError(errors.Wrap(friendly, "wrapped")))
}

func TestRateLimitIgnoresForwardingHeadersUnlessTrusted(t *testing.T) {
	newRoutes := func(trust bool) http.Handler {
		h, err := NewHandler(Options{
			Store:      theme.NewStore(storage.NewMemoryStore(), theme.WithLogger(zerolog.Nop())),
			Cache:      catalog.NewCache(catalog.SourceFunc(okSource)),
			Limiter:    ratelimit.New(60, 1),
			Logger:     zerolog.Nop(),
			TrustProxy: trust,
		})
		require.NoError(t, err)
		return h.Routes()
	}
	send := func(h http.Handler, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/about", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := newRoutes(false)
	assert.Equal(t, http.StatusOK, send(direct, "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, send(direct, "2.2.2.2"), "a spoofed header must not reset the bucket")

	proxied := newRoutes(true)
	assert.Equal(t, http.StatusOK, send(proxied, "1.1.1.1"))
	assert.Equal(t, http.StatusOK, send(proxied, "2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, send(proxied, "1.1.1.1"))
}
