package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"survey-rewards-system/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Respondent{}))
	return db
}

// profileFeed serves a fixed change feed and records the since parameters.
type profileFeed struct {
	mu     sync.Mutex
	users  []RemoteProfile
	sinces []string
	status int
}

func (f *profileFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Header.Get("X-Service-Token") != "svc" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	f.sinces = append(f.sinces, r.URL.Query().Get("since"))
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	_ = json.NewEncoder(w).Encode(GetProfileChangesResponse{Users: f.users})
}

func TestRespondentSyncWorker_SyncOnce(t *testing.T) {
	db := newTestDB(t)
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	feed := &profileFeed{users: []RemoteProfile{
		{ExternalID: "u1", Username: "alice", Email: "a@example.com", AccountStatus: "active", CreatedAt: t0, UpdatedAt: t0},
		{ExternalID: "u2", Username: "bob", AccountStatus: "active", CreatedAt: t0, UpdatedAt: t0.Add(time.Minute)},
		{ExternalID: "  ", Username: "broken"},
	}}
	srv := httptest.NewServer(feed)
	defer srv.Close()

	w := NewRespondentSyncWorker(db, zap.NewNop(), srv.URL, "/api/v1/public/profiles", "svc", time.Minute, srv.Client())
	n, err := w.SyncOnce(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var count int64
	db.Model(&models.Respondent{}).Count(&count)
	assert.Equal(t, int64(2), count)
	assert.True(t, w.lastSyncTime(context.Background()).Equal(t0.Add(time.Minute)))

	// Rename alice and suspend bob.
	feed.users = []RemoteProfile{
		{ExternalID: "u1", Username: "alice2", Email: "a@example.com", AccountStatus: "active", CreatedAt: t0, UpdatedAt: t0.Add(2 * time.Minute)},
		{ExternalID: "u2", Username: "bob", AccountStatus: "Suspended", CreatedAt: t0, UpdatedAt: t0.Add(3 * time.Minute)},
	}
	n, err = w.SyncOnce(context.Background(), w.lastSyncTime(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var alice models.Respondent
	require.NoError(t, db.First(&alice, "id = ?", "u1").Error)
	assert.Equal(t, "alice2", alice.Username)

	err = db.First(&models.Respondent{}, "id = ?", "u2").Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.True(t, w.lastSyncTime(context.Background()).Equal(t0.Add(3*time.Minute)))

	require.Len(t, feed.sinces, 2)
	assert.Equal(t, t0.Add(time.Minute).Format(time.RFC3339), feed.sinces[1])
}

func TestRespondentSyncWorker_FeedErrors(t *testing.T) {
	db := newTestDB(t)
	feed := &profileFeed{status: http.StatusBadGateway}
	srv := httptest.NewServer(feed)
	defer srv.Close()

	w := NewRespondentSyncWorker(db, zap.NewNop(), srv.URL, "/profiles", "svc", 0, nil)
	_, err := w.SyncOnce(context.Background(), time.Time{})
	assert.Error(t, err)

	w = NewRespondentSyncWorker(db, zap.NewNop(), srv.URL, "/profiles", "wrong", 0, nil)
	_, err = w.SyncOnce(context.Background(), time.Time{})
	assert.Error(t, err)

	assert.Equal(t, time.Unix(0, 0), w.lastSyncTime(context.Background()))
}

func TestRespondentSyncWorker_RunStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	feed := &profileFeed{users: []RemoteProfile{{ExternalID: "u1", Username: "alice", UpdatedAt: time.Now().UTC()}}}
	srv := httptest.NewServer(feed)
	defer srv.Close()

	w := NewRespondentSyncWorker(db, zap.NewNop(), srv.URL, "/profiles", "svc", 10*time.Millisecond, srv.Client())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.sinces) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
