package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit"
	"github.com/E-m-i-n-e-n-c-e/Revent/internal/audit/store/memory"
)

const testSecret = "test-secret"

type capturedAnnouncement struct {
	clubID string
	item   map[string]any
}

type fakeAnnouncer struct {
	announced []capturedAnnouncement
}

func (f *fakeAnnouncer) Announce(_ context.Context, clubID string, item map[string]any) {
	f.announced = append(f.announced, capturedAnnouncement{clubID: clubID, item: item})
}

func newTestServer(t *testing.T, store audit.Store, announcer *fakeAnnouncer) *httptest.Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	pipeline := audit.NewService(audit.NewWriter(store, audit.WithLogger(log)), log)
	var a Announcer
	if announcer != nil {
		a = announcer
	}
	handler := NewHandler(pipeline, store, a, log, testSecret)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func bearerToken(t *testing.T, sub, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func postChange(t *testing.T, srv *httptest.Server, token string, payload map[string]any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/changes", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestHandleChange_WritesRecordWithBearerActor(t *testing.T) {
	store := memory.NewInMemoryStore()
	srv := newTestServer(t, store, nil)

	resp := postChange(t, srv, bearerToken(t, "uid-1", "jane@x.com"), map[string]any{
		"collection": "clubs",
		"documentId": "club-1",
		"before":     map[string]any{"adminEmails": []string{"a@x.com"}},
		"after":      map[string]any{"adminEmails": []string{"a@x.com", "b@x.com"}},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "update_club_admins", out["operation"])

	records, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "uid-1", records[0].UserID)
	assert.Equal(t, "jane@x.com", records[0].UserEmail)
}

func TestHandleChange_RequiresAuth(t *testing.T) {
	store := memory.NewInMemoryStore()
	srv := newTestServer(t, store, nil)

	resp := postChange(t, srv, "", map[string]any{
		"collection": "events",
		"documentId": "event-1",
		"after":      map[string]any{"title": "Hackathon"},
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, store.Len())
}

func TestHandleChange_RejectsEmptySnapshotPair(t *testing.T) {
	store := memory.NewInMemoryStore()
	srv := newTestServer(t, store, nil)

	resp := postChange(t, srv, bearerToken(t, "uid-1", "jane@x.com"), map[string]any{
		"collection": "events",
		"documentId": "event-1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleChange_TriggersAnnouncer(t *testing.T) {
	store := memory.NewInMemoryStore()
	announcer := &fakeAnnouncer{}
	srv := newTestServer(t, store, announcer)

	resp := postChange(t, srv, bearerToken(t, "uid-1", "jane@x.com"), map[string]any{
		"collection": "announcements",
		"documentId": "club-1",
		"before":     map[string]any{"announcementsList": []any{}},
		"after": map[string]any{
			"announcementsList": []any{map[string]any{"title": "Hi"}},
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, announcer.announced, 1)
	assert.Equal(t, "club-1", announcer.announced[0].clubID)
	assert.Equal(t, "Hi", announcer.announced[0].item["title"])
}

func TestHandleListLogs(t *testing.T) {
	store := memory.NewInMemoryStore()
	srv := newTestServer(t, store, nil)

	for range 3 {
		require.NoError(t, store.Append(context.Background(), audit.Record{
			Collection: audit.CollectionEvents,
			DocumentID: "event-1",
			Operation:  audit.OpUpdateEvent,
		}))
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/logs?limit=2", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "uid-1", "jane@x.com"))

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Logs []map[string]any `json:"logs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Logs, 2)
}

func TestHandleDocumentLogs_RejectsUnknownCollection(t *testing.T) {
	store := memory.NewInMemoryStore()
	srv := newTestServer(t, store, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/logs/bogus/doc-1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+bearerToken(t, "uid-1", "jane@x.com"))

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthzNeedsNoAuth(t *testing.T) {
	srv := newTestServer(t, memory.NewInMemoryStore(), nil)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type fakeHealthChecker struct {
	err error
}

func (f fakeHealthChecker) Health(context.Context) error { return f.err }

func TestHealthzReportsFailingDependency(t *testing.T) {
	store := memory.NewInMemoryStore()
	log := slog.New(slog.DiscardHandler)
	pipeline := audit.NewService(audit.NewWriter(store, audit.WithLogger(log)), log)
	handler := NewHandler(pipeline, store, nil, log, testSecret)
	handler.AddHealthCheck("postgres", fakeHealthChecker{})
	handler.AddHealthCheck("redis", fakeHealthChecker{err: errors.New("connection refused")})
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Dependencies["postgres"])
	assert.Equal(t, "unavailable", body.Dependencies["redis"])
}
