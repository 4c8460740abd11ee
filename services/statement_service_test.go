package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survey-rewards-system/models"
)

type fakeUploader struct {
	key         string
	body        []byte
	contentType string
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, key string, body []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.body, f.contentType = key, body, contentType
	return "https://cdn.example.com/" + key, nil
}

func TestStatementService_Export(t *testing.T) {
	db := newTestDB(t)
	ledger := NewRewardsLedger(NewGormRecordStore(db), nopLogger())
	seedRespondent(t, db, "r1")
	seedRecords(t, db, "r1", 100, recordSeed{rewardType: models.SurveyRewardAcademic, status: models.AcceptanceAccepted})
	seedRecords(t, db, "r1", 2, recordSeed{rewardType: models.SurveyRewardCommerce, status: models.AcceptanceAccepted, amount: "1.25"})

	ctx := context.Background()
	_, err := ledger.ClaimSCP(ctx, "r1")
	require.NoError(t, err)
	_, err = ledger.ClaimCommerceRewards(ctx, "r1")
	require.NoError(t, err)

	up := &fakeUploader{}
	svc := NewStatementService(db, up, nopLogger())
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	url, err := svc.Export(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "statements/r1/20260304T050607Z.csv", up.key)
	assert.Equal(t, "https://cdn.example.com/"+up.key, url)
	assert.Equal(t, "text/csv", up.contentType)

	rows, err := csv.NewReader(bytes.NewReader(up.body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, statementHeader, rows[0])

	kinds := []string{rows[1][2], rows[2][2]}
	assert.ElementsMatch(t, []string{"scp", "commerce"}, kinds)
	for _, row := range rows[1:] {
		switch row[2] {
		case "scp":
			assert.Equal(t, "1.00", row[3])
			assert.Equal(t, "100", row[4])
			assert.Equal(t, "none", row[5])
		case "commerce":
			assert.Equal(t, "2.50", row[3])
			assert.Equal(t, "2", row[4])
			assert.Equal(t, "pending", row[5])
		}
	}
}

func TestStatementService_Errors(t *testing.T) {
	db := newTestDB(t)
	seedRespondent(t, db, "r1")

	svc := NewStatementService(db, &fakeUploader{}, nopLogger())
	_, err := svc.Export(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRespondentNotFound)

	svc = NewStatementService(db, &fakeUploader{err: errors.New("bucket gone")}, nopLogger())
	_, err = svc.Export(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.True(t, strings.Contains(err.Error(), "bucket gone"))
}
