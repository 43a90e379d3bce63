package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/flowrelay/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func record(t *testing.T, store *Store, ex Exchange) {
	t.Helper()
	require.NoError(t, store.Record(context.Background(), ex))
}

func TestRecordAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	record(t, store, Exchange{
		ID:          "ex-1",
		RequestID:   "req-1",
		Timestamp:   ts,
		Platform:    "telegram",
		ChannelID:   "42",
		UserID:      "7",
		Question:    "what did I write about Go?",
		Outcome:     "answered",
		StatusCode:  200,
		AnswerChars: 120,
		ElapsedMS:   850,
	})

	got, err := store.GetByID(ctx, "ex-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "telegram", got.Platform)
	assert.Equal(t, "what did I write about Go?", got.Question)
	assert.Equal(t, "answered", got.Outcome)
	assert.Equal(t, 200, got.StatusCode)
	assert.Equal(t, 120, got.AnswerChars)
	assert.EqualValues(t, 850, got.ElapsedMS)
	assert.True(t, ts.Equal(got.Timestamp), "timestamp = %v", got.Timestamp)
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)
	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordGeneratesUUID(t *testing.T) {
	store := setupStore(t)
	record(t, store, Exchange{Platform: "discord", UserID: "u", Question: "q", Outcome: "empty"})

	exchanges, err := store.Query(context.Background(), QueryFilter{Platform: "discord"})
	require.NoError(t, err)
	require.Len(t, exchanges, 1)
	assert.NotEmpty(t, exchanges[0].ID)
	assert.False(t, exchanges[0].Timestamp.IsZero())
}

func TestRecordRejectsUnknownOutcome(t *testing.T) {
	store := setupStore(t)
	err := store.Record(context.Background(), Exchange{Platform: "web", Question: "q", Outcome: "maybe"})
	assert.Error(t, err)
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	record(t, store, Exchange{Timestamp: base, Platform: "telegram", UserID: "alice", Question: "1", Outcome: "answered"})
	record(t, store, Exchange{Timestamp: base.Add(time.Hour), Platform: "telegram", UserID: "bob", Question: "2", Outcome: "unreachable"})
	record(t, store, Exchange{Timestamp: base.Add(2 * time.Hour), Platform: "slack", UserID: "alice", Question: "3", Outcome: "answered"})

	byUser, err := store.Query(ctx, QueryFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)
	assert.Equal(t, "3", byUser[0].Question, "newest first")

	byOutcome, err := store.Query(ctx, QueryFilter{Outcome: "unreachable"})
	require.NoError(t, err)
	require.Len(t, byOutcome, 1)
	assert.Equal(t, "bob", byOutcome[0].UserID)

	since := base.Add(30 * time.Minute)
	recent, err := store.Query(ctx, QueryFilter{Since: &since, Platform: "telegram"})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2", recent[0].Question)

	page, err := store.Query(ctx, QueryFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "2", page[0].Question)
}

func TestStats(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	record(t, store, Exchange{Platform: "telegram", Question: "a", Outcome: "answered", ElapsedMS: 100})
	record(t, store, Exchange{Platform: "telegram", Question: "b", Outcome: "answered", ElapsedMS: 300})
	record(t, store, Exchange{Platform: "telegram", Question: "c", Outcome: "unauthorized", ElapsedMS: 20})

	stats, err := store.Stats(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByOutcome["answered"].Count)
	assert.InDelta(t, 200, stats.ByOutcome["answered"].AvgElapsedMS, 0.001)
	assert.InDelta(t, 140, stats.AvgElapsedMS, 0.001)

	empty, err := store.Stats(ctx, QueryFilter{Platform: "teams"})
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	record(t, store, Exchange{Timestamp: now.Add(-48 * time.Hour), Platform: "telegram", Question: "old", Outcome: "answered"})
	record(t, store, Exchange{Timestamp: now, Platform: "telegram", Question: "new", Outcome: "answered"})

	n, err := store.DeleteBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	remaining, err := store.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Question)
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	record(t, store, Exchange{ID: "ex-1", Platform: "telegram", UserID: "alice", Question: "q1", Outcome: "answered"})
	record(t, store, Exchange{ID: "ex-2", Platform: "web", UserID: "bob", Question: "q2", Outcome: "service_error", StatusCode: 500})

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	t.Run("list with filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exchanges?platform=web", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got []Exchange
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, "ex-2", got[0].ID)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exchanges?platform=teams", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("stats", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exchanges/stats", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var stats Stats
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 1, stats.ByOutcome["service_error"].Count)
	})

	t.Run("get by id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exchanges/ex-1", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got Exchange
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "alice", got.UserID)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exchanges/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
