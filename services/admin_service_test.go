package services

import (
	"context"
	"testing"

	"lipia/models"
	"lipia/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminStatsAndReset(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.PutUser(ctx, models.User{Username: "demo"}))
	require.NoError(t, st.AppendTransaction(ctx, models.Transaction{TransactionID: "T1", UserID: "demo"}))

	svc := NewAdminService(st, models.DefaultPlans(), quietLogger())

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["cached_users"])
	assert.Equal(t, int64(1), stats["transactions"])

	require.NoError(t, svc.ResetCache(ctx))
	stats, _ = svc.GetStats(ctx)
	assert.Equal(t, int64(0), stats["cached_users"])
}
