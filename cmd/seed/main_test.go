package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknexus/internal/kyc"
	"blocknexus/internal/medium"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()

	t.Run("profiles with kyc are mirrored as pending", func(t *testing.T) {
		store := kyc.New(medium.NewMemory())
		require.NoError(t, seed(ctx, store, true))

		users := store.AllUsers(ctx)
		require.Len(t, users, len(demoProfiles))
		assert.Equal(t, kyc.KYCStatusPending, users[demoProfiles[0].wallet].KYCStatus)
		assert.Equal(t, kyc.KYCStatusNone, users[demoProfiles[1].wallet].KYCStatus)
		assert.Equal(t, kyc.Stats{Total: 1, Pending: 1}, store.Stats(ctx))
	})

	t.Run("without kyc only profiles are written", func(t *testing.T) {
		store := kyc.New(medium.NewMemory())
		require.NoError(t, seed(ctx, store, false))

		assert.Empty(t, store.AllKYC(ctx))
		assert.Equal(t, "ada", store.AllUsers(ctx)[demoProfiles[0].wallet].Fields["username"])
	})
}
