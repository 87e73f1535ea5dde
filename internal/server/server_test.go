package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfmyers9/lyricqueue/internal/catalog"
	"github.com/jfmyers9/lyricqueue/internal/lyrics"
	"github.com/jfmyers9/lyricqueue/internal/server"
	"github.com/jfmyers9/lyricqueue/internal/service"
	"github.com/jfmyers9/lyricqueue/internal/testutil"
	"github.com/jfmyers9/lyricqueue/internal/window"
)

type fixture struct {
	catalog *testutil.Catalog
	fetcher *testutil.Lyrics
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)

	source := testutil.NewCatalog(12)
	source.Artists["kendrick"] = catalog.ArtistRef{ExternalID: "1", Name: "Kendrick Lamar"}

	fetcher := testutil.NewLyrics(nil)
	for _, entry := range source.Songs {
		fetcher.Set(entry.ID, "lyrics of "+entry.ID)
	}

	logger := testutil.Logger()
	populator := catalog.NewPopulator(store, source, catalog.Options{PageSize: 5}, logger)
	scraper := lyrics.NewScraper(store, fetcher, lyrics.Options{}, logger)
	svc := service.New(store, source, populator, scraper, window.NewLoader(store, scraper, logger), service.Options{}, logger)
	t.Cleanup(svc.Wait)

	srv := server.New(svc, server.Options{DefaultWindowSize: 3, RequestTimeout: time.Minute}, logger)
	return &fixture{catalog: source, fetcher: fetcher, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(server.RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(server.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(server.RequestIDHeader))
}

func TestArtistLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/artists", map[string]string{"name": "kendrick"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sum := decode[service.Summary](t, rec)
	assert.Equal(t, "kendrick-lamar", sum.ID)

	rec = f.do(t, http.MethodPost, "/artists", map[string]string{"externalId": "1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/artists/kendrick-lamar/populate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[catalog.Result](t, rec)
	assert.Equal(t, 12, res.TotalSongs)
	assert.True(t, res.IsFullyCached)

	rec = f.do(t, http.MethodGet, "/artists/kendrick-lamar/window?cursor=s4", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var w struct {
		Direction string `json:"direction"`
		SongIDs   []string
		Songs     map[string]struct {
			Lyrics string `json:"lyrics"`
		}
		Scraped int
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.Equal(t, "forward", w.Direction)
	assert.Equal(t, []string{"s4", "s5", "s6"}, w.SongIDs)
	assert.Equal(t, 3, w.Scraped)
	assert.Equal(t, "lyrics of s5", w.Songs["s5"].Lyrics)

	rec = f.do(t, http.MethodGet, "/artists/kendrick-lamar/window?cursor=s4&direction=reverse&size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &w))
	assert.Equal(t, []string{"s3", "s4"}, w.SongIDs)
	assert.Equal(t, 1, w.Scraped)

	rec = f.do(t, http.MethodPost, "/artists/kendrick-lamar/scrape", map[string]any{"songIds": []string{"s10", "s11"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	scraped := decode[lyrics.Result](t, rec)
	assert.Equal(t, []string{"s10", "s11"}, scraped.Successful)

	rec = f.do(t, http.MethodGet, "/artists/kendrick-lamar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum = decode[service.Summary](t, rec)
	assert.Equal(t, 6, sum.LyricsScraped)
	assert.Equal(t, 6, sum.CachedSongs)

	rec = f.do(t, http.MethodPost, "/artists/kendrick-lamar/repair", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[service.RepairReport](t, rec)
	assert.Empty(t, report.Evicted)
	assert.Empty(t, report.Added)

	rec = f.do(t, http.MethodGet, "/artists", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Artists []service.Summary `json:"artists"`
		Count   int               `json:"count"`
	}](t, rec)
	assert.Equal(t, 1, list.Count)
}

func TestErrors(t *testing.T) {
	f := newFixture(t)
	f.catalog.FailPage = 1
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/artists", map[string]string{"name": "kendrick"}).Code)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown artist", http.MethodGet, "/artists/nobody", nil, http.StatusNotFound, "NOT_FOUND"},
		{"unresolvable name", http.MethodPost, "/artists", map[string]string{"name": "nobody"}, http.StatusNotFound, "NOT_FOUND"},
		{"empty add body", http.MethodPost, "/artists", map[string]string{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"upstream down", http.MethodPost, "/artists/kendrick-lamar/populate", nil, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{"bad direction", http.MethodGet, "/artists/kendrick-lamar/window?cursor=s1&direction=sideways", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad size", http.MethodGet, "/artists/kendrick-lamar/window?cursor=s1&size=ten", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing cursor", http.MethodGet, "/artists/kendrick-lamar/window", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty catalog window", http.MethodGet, "/artists/kendrick-lamar/window?cursor=s1", nil, http.StatusNotFound, "NOT_FOUND"},
		{"scrape without ids", http.MethodPost, "/artists/kendrick-lamar/scrape", map[string]any{"songIds": []string{}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"repair unknown artist", http.MethodPost, "/artists/nobody/repair", nil, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := server.New(nil, server.Options{}, testutil.Logger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
