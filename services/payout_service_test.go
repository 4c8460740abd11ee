package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"survey-rewards-system/models"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []PayoutRequest
	fail map[string]bool
}

func (f *fakeSender) SendPayout(_ context.Context, req PayoutRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[req.RespondentID] {
		return errors.New("wallet unavailable")
	}
	f.sent = append(f.sent, req)
	return nil
}

func claimFor(t *testing.T, db *gorm.DB, ledger *RewardsLedger, respondentID, amount string) ClaimResult {
	t.Helper()
	seedRespondent(t, db, respondentID)
	seedRecords(t, db, respondentID, 1, recordSeed{rewardType: models.SurveyRewardCommerce, status: models.AcceptanceAccepted, amount: amount})
	res, err := ledger.ClaimCommerceRewards(context.Background(), respondentID)
	require.NoError(t, err)
	return res
}

func TestPayoutService_DispatchPending(t *testing.T) {
	db := newTestDB(t)
	ledger := NewRewardsLedger(NewGormRecordStore(db), nopLogger())
	good := claimFor(t, db, ledger, "good", "12.30")
	bad := claimFor(t, db, ledger, "bad", "4")

	// SCP exchanges carry no money and are never dispatched.
	seedRespondent(t, db, "scholar")
	seedRecords(t, db, "scholar", 100, recordSeed{rewardType: models.SurveyRewardAcademic, status: models.AcceptanceAccepted})
	_, err := ledger.ClaimSCP(context.Background(), "scholar")
	require.NoError(t, err)

	sender := &fakeSender{fail: map[string]bool{"bad": true}}
	svc := NewPayoutService(db, sender, nopLogger())

	res, err := svc.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, good.ClaimID, sender.sent[0].ClaimID)
	assert.True(t, dec("12.30").Equal(sender.sent[0].Amount))
	assert.Equal(t, "USD", sender.sent[0].Currency)

	var sent models.RewardClaim
	require.NoError(t, db.First(&sent, "id = ?", good.ClaimID).Error)
	assert.Equal(t, models.PayoutStatusSent, sent.PayoutStatus)
	assert.NotNil(t, sent.PaidOutAt)

	var retry models.RewardClaim
	require.NoError(t, db.First(&retry, "id = ?", bad.ClaimID).Error)
	assert.Equal(t, models.PayoutStatusPending, retry.PayoutStatus)
	assert.Equal(t, 1, retry.PayoutAttempts)
	assert.Equal(t, "wallet unavailable", retry.LastError)

	// A second run has nothing new for the good claim.
	res, err = svc.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Len(t, sender.sent, 1)
}

func TestPayoutService_ParksAfterMaxAttempts(t *testing.T) {
	db := newTestDB(t)
	ledger := NewRewardsLedger(NewGormRecordStore(db), nopLogger())
	bad := claimFor(t, db, ledger, "bad", "1")
	svc := NewPayoutService(db, &fakeSender{fail: map[string]bool{"bad": true}}, nopLogger())

	var failed int
	for i := 0; i < MaxPayoutAttempts+2; i++ {
		res, err := svc.DispatchPending(context.Background(), 10)
		require.NoError(t, err)
		failed += res.Failed
	}
	assert.Equal(t, 1, failed)

	var claim models.RewardClaim
	require.NoError(t, db.First(&claim, "id = ?", bad.ClaimID).Error)
	assert.Equal(t, models.PayoutStatusFailed, claim.PayoutStatus)
	assert.Equal(t, MaxPayoutAttempts, claim.PayoutAttempts)

	// The ledger still counts the money as claimed.
	snap, err := ledger.GetSnapshot(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, snap.AvailableCommerceRewards.IsZero())
}

func TestWalletClient_SendPayout(t *testing.T) {
	var got PayoutRequest
	status := http.StatusCreated
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payouts", r.URL.Path)
		assert.Equal(t, "svc-token", r.Header.Get("X-Service-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, got.ClaimID, r.Header.Get("Idempotency-Key"))
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := NewWalletClient(srv.URL, "svc-token")
	req := PayoutRequest{ClaimID: "c1", RespondentID: "r1", Amount: dec("5.5"), Currency: "USD"}
	require.NoError(t, client.SendPayout(context.Background(), req))
	assert.Equal(t, "c1", got.ClaimID)
	assert.True(t, dec("5.5").Equal(got.Amount))

	status = http.StatusConflict
	assert.NoError(t, client.SendPayout(context.Background(), req))

	status = http.StatusBadGateway
	assert.Error(t, client.SendPayout(context.Background(), req))
}
