package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-rewards-system/models"
)

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestStartPayoutScheduler_DispatchesUntilShutdown(t *testing.T) {
	db := newTestDB(t)
	ledger := NewRewardsLedger(NewGormRecordStore(db), nopLogger())
	first := claimFor(t, db, ledger, "r1", "7.25")

	sender := &fakeSender{}
	svc := NewPayoutService(db, sender, nopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched, err := svc.StartPayoutScheduler(ctx, 20*time.Millisecond, 10)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var claim models.RewardClaim
		if err := db.First(&claim, "id = ?", first.ClaimID).Error; err != nil {
			return false
		}
		return claim.PayoutStatus == models.PayoutStatusSent
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, sender.sentCount())

	require.NoError(t, sched.Shutdown())

	second := claimFor(t, db, ledger, "r2", "1")
	time.Sleep(150 * time.Millisecond)

	var claim models.RewardClaim
	require.NoError(t, db.First(&claim, "id = ?", second.ClaimID).Error)
	assert.Equal(t, models.PayoutStatusPending, claim.PayoutStatus)
	assert.Equal(t, 1, sender.sentCount())
}
