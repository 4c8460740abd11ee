// workers/respondent_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"survey-rewards-system/models"
)

// RemoteProfile matches one user in the profile service's change feed.
type RemoteProfile struct {
	ExternalID    string    `json:"external_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	AccountStatus string    `json:"account_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GetProfileChangesResponse is the top-level structure of the change feed.
type GetProfileChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// Account statuses that remove a respondent locally.
var inactiveStatuses = map[string]bool{
	"deactivated": true,
	"suspended":   true,
	"deleted":     true,
}

// RespondentSyncWorker mirrors profile-service users into the respondents table.
type RespondentSyncWorker struct {
	db           *gorm.DB
	log          *zap.Logger
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
}

func NewRespondentSyncWorker(db *gorm.DB, log *zap.Logger, baseURL, endpointPath, serviceToken string, interval time.Duration, client *http.Client) *RespondentSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RespondentSyncWorker{
		db:           db,
		log:          log,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   client,
	}
}

// Run blocks until ctx is cancelled: one backfill, then incremental syncs.
func (w *RespondentSyncWorker) Run(ctx context.Context) {
	w.log.Info("starting respondent sync worker", zap.Duration("interval", w.interval))

	if _, err := w.SyncOnce(ctx, time.Time{}); err != nil {
		w.log.Warn("initial respondent sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx, w.lastSyncTime(ctx)); err != nil {
				w.log.Error("respondent sync batch failed", zap.Error(err))
			}
		case <-ctx.Done():
			w.log.Info("respondent sync worker stopped")
			return
		}
	}
}

// lastSyncTime is the newest UpdatedAt we hold, including removed rows.
func (w *RespondentSyncWorker) lastSyncTime(ctx context.Context) time.Time {
	var latest models.Respondent
	err := w.db.WithContext(ctx).Unscoped().Select("updated_at").Order("updated_at DESC").First(&latest).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			w.log.Warn("could not read last sync time", zap.Error(err))
		}
		return time.Unix(0, 0)
	}
	return latest.UpdatedAt
}

// SyncOnce fetches changes since the given time and applies them. It returns
// how many respondents were upserted or removed.
func (w *RespondentSyncWorker) SyncOnce(ctx context.Context, since time.Time) (int, error) {
	profiles, err := w.fetch(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		w.log.Debug("no profile changes", zap.Time("since", since))
		return 0, nil
	}

	var applied, failed int
	for _, p := range profiles {
		if strings.TrimSpace(p.ExternalID) == "" {
			failed++
			continue
		}
		if err := w.apply(ctx, p); err != nil {
			failed++
			w.log.Warn("failed to apply profile change",
				zap.String("external_id", p.ExternalID), zap.Error(err))
			continue
		}
		applied++
	}

	w.log.Info("respondent sync finished",
		zap.Int("received", len(profiles)),
		zap.Int("applied", applied),
		zap.Int("failed", failed))
	return applied, nil
}

func (w *RespondentSyncWorker) apply(ctx context.Context, p RemoteProfile) error {
	db := w.db.WithContext(ctx)
	r := models.Respondent{
		ID:        p.ExternalID,
		Username:  p.Username,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if inactiveStatuses[strings.ToLower(p.AccountStatus)] {
		r.DeletedAt = gorm.DeletedAt{Time: p.UpdatedAt, Valid: true}
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "updated_at", "deleted_at",
		}),
	}).Create(&r).Error
}

func (w *RespondentSyncWorker) fetch(ctx context.Context, since time.Time) ([]RemoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid profile service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile service request failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("profile service returned %d: %s", resp.StatusCode, string(body))
	}

	var out GetProfileChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode profile changes: %w", err)
	}
	return out.Users, nil
}
