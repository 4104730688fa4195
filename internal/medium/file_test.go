package medium

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMedium(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips values and survives reopen", func(t *testing.T) {
		dir := t.TempDir()
		f, err := NewFile(dir)
		require.NoError(t, err)
		require.NoError(t, f.SetItem(ctx, "blockNexus_KYC_Data", `{"0xA":{}}`))

		reopened, err := NewFile(dir)
		require.NoError(t, err)
		value, ok, err := reopened.GetItem(ctx, "blockNexus_KYC_Data")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"0xA":{}}`, value)
	})

	t.Run("missing key reports ok=false", func(t *testing.T) {
		f, err := NewFile(t.TempDir())
		require.NoError(t, err)
		_, ok, err := f.GetItem(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys with path separators stay inside the directory", func(t *testing.T) {
		dir := t.TempDir()
		f, err := NewFile(dir)
		require.NoError(t, err)
		require.NoError(t, f.SetItem(ctx, "../escape/key", "v"))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "escape"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("remove is idempotent and leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		f, err := NewFile(dir)
		require.NoError(t, err)
		require.NoError(t, f.SetItem(ctx, "k", "v"))
		require.NoError(t, f.RemoveItem(ctx, "k"))
		require.NoError(t, f.RemoveItem(ctx, "k"))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
