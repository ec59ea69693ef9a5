package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/sentinel/internal/model"
)

func testRecord(alert string, executedAt time.Time) *model.ExecutionRecord {
	return &model.ExecutionRecord{
		ExecutionID: uuid.New().String(),
		AlertName:   alert,
		ExecutedAt:  executedAt,
		DurationMS:  100,
		Status:      model.ExecutionStatusSuccess,
		TriggeredBy: model.TriggeredByManual,
	}
}

func TestLedger_RecordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	actual := 8000.0
	threshold := 10000.0

	rec := &model.ExecutionRecord{
		ExecutionID:       uuid.New().String(),
		AlertName:         "daily_revenue",
		ExecutedAt:        now,
		DurationMS:        231,
		Status:            model.ExecutionStatusFailure,
		ActualValue:       &actual,
		Threshold:         &threshold,
		TriggeredBy:       model.TriggeredByCron,
		NotificationSent:  true,
		NotificationError: "slack: 500 Internal Server Error",
		Context: model.Context{
			{Key: "region", Value: "eu-west-1"},
			{Key: "orders", Value: float64(42)},
		},
	}

	require.NoError(t, db.ledger.Record(ctx, rec))

	records, err := db.ledger.Query(ctx, LedgerQuery{AlertName: "daily_revenue", Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.ExecutionID, got.ExecutionID)
	assert.Equal(t, model.ExecutionStatusFailure, got.Status)
	assert.Equal(t, int64(231), got.DurationMS)
	require.NotNil(t, got.ActualValue)
	assert.Equal(t, 8000.0, *got.ActualValue)
	require.NotNil(t, got.Threshold)
	assert.Equal(t, 10000.0, *got.Threshold)
	assert.Equal(t, model.TriggeredByCron, got.TriggeredBy)
	assert.True(t, got.NotificationSent)
	assert.Equal(t, "slack: 500 Internal Server Error", got.NotificationError)
	assert.WithinDuration(t, now, got.ExecutedAt, time.Second)

	// Context keys come back in their original order
	require.Len(t, got.Context, 2)
	assert.Equal(t, "region", got.Context[0].Key)
	assert.Equal(t, "eu-west-1", got.Context[0].Value)
	assert.Equal(t, "orders", got.Context[1].Key)
}

func TestLedger_QueryOrderingAndPagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 25; i++ {
		rec := testRecord("paged", base.Add(time.Duration(i)*time.Minute))
		rec.DurationMS = int64(i)
		require.NoError(t, db.ledger.Record(ctx, rec))
	}

	first, err := db.ledger.Query(ctx, LedgerQuery{AlertName: "paged", Limit: 10, Offset: 0})
	require.NoError(t, err)
	require.Len(t, first, 10)

	// Most recent first
	for i := 1; i < len(first); i++ {
		assert.False(t, first[i].ExecutedAt.After(first[i-1].ExecutedAt),
			"records must be in reverse chronological order")
	}
	assert.Equal(t, int64(24), first[0].DurationMS)

	second, err := db.ledger.Query(ctx, LedgerQuery{AlertName: "paged", Limit: 10, Offset: 10})
	require.NoError(t, err)
	require.Len(t, second, 10)

	// Pages are disjoint
	seen := make(map[string]bool, len(first))
	for _, rec := range first {
		seen[rec.ExecutionID] = true
	}
	for _, rec := range second {
		assert.False(t, seen[rec.ExecutionID],
			"record %s appeared on both pages", rec.ExecutionID)
	}

	third, err := db.ledger.Query(ctx, LedgerQuery{AlertName: "paged", Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, third, 5)
}

func TestLedger_QueryFiltersByAlert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, db.ledger.Record(ctx, testRecord("alpha", now)))
	require.NoError(t, db.ledger.Record(ctx, testRecord("beta", now.Add(time.Second))))
	require.NoError(t, db.ledger.Record(ctx, testRecord("alpha", now.Add(2*time.Second))))

	records, err := db.ledger.Query(ctx, LedgerQuery{AlertName: "alpha", Limit: 10})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "alpha", rec.AlertName)
	}

	all, err := db.ledger.Query(ctx, LedgerQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLedger_Stats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	durations := map[model.ExecutionStatus][]int64{
		model.ExecutionStatusSuccess: {100, 200},
		model.ExecutionStatusFailure: {300},
		model.ExecutionStatusError:   {50},
	}

	i := 0
	for status, ds := range durations {
		for _, d := range ds {
			rec := testRecord("stats", now.Add(time.Duration(i)*time.Second))
			rec.Status = status
			rec.DurationMS = d
			require.NoError(t, db.ledger.Record(ctx, rec))
			i++
		}
	}
	// A record for another alert must not leak into filtered stats
	other := testRecord("other", now)
	other.DurationMS = 9999
	require.NoError(t, db.ledger.Record(ctx, other))

	stats, err := db.ledger.Stats(ctx, "stats")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalExecutions)
	assert.Equal(t, 2, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.InDelta(t, 162.5, stats.AvgDurationMS, 0.01)
	assert.Equal(t, int64(50), stats.MinDurationMS)
	assert.Equal(t, int64(300), stats.MaxDurationMS)

	all, err := db.ledger.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 5, all.TotalExecutions)
	assert.Equal(t, int64(9999), all.MaxDurationMS)
}

func TestLedger_StatsEmpty(t *testing.T) {
	db := newTestDB(t)

	stats, err := db.ledger.Stats(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalExecutions)
	assert.Equal(t, 0, stats.SuccessCount)
	assert.Equal(t, 0.0, stats.AvgDurationMS)
}

func TestLedger_Count(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, db.ledger.Record(ctx, testRecord("counted", now.Add(time.Duration(i)*time.Second))))
	}
	require.NoError(t, db.ledger.Record(ctx, testRecord("other", now)))

	count, err := db.ledger.Count(ctx, "counted")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	total, err := db.ledger.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestLedger_DeleteBefore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := testRecord("retention", now.Add(time.Duration(i-4)*24*time.Hour))
		require.NoError(t, db.ledger.Record(ctx, rec))
	}

	deleted, err := db.ledger.DeleteBefore(ctx, now.Add(-36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	count, err := db.ledger.Count(ctx, "retention")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLedger_UniqueExecutionIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := testRecord("dup", time.Now().UTC())
	require.NoError(t, db.ledger.Record(ctx, rec))

	err := db.ledger.Record(ctx, rec)
	require.Error(t, err, "duplicate execution IDs must be rejected")
	assert.Contains(t, fmt.Sprint(err), "failed to record execution")
}
