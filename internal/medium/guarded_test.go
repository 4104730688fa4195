package medium

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"blocknexus/internal/medium/mocks"
	"blocknexus/pkg/platform/circuit"
	"blocknexus/pkg/platform/sentinel"
)

func TestGuarded(t *testing.T) {
	ctx := context.Background()
	down := fmt.Errorf("dial tcp: %w", sentinel.ErrUnavailable)

	t.Run("unavailable results open the breaker and successes close it", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		inner := mocks.NewMockMedium(ctrl)
		g := NewGuarded(inner, circuit.New("redis", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1)), nil)

		inner.EXPECT().GetItem(gomock.Any(), "k").Return("", false, down).Times(2)
		for range 2 {
			_, _, err := g.GetItem(ctx, "k")
			require.ErrorIs(t, err, sentinel.ErrUnavailable)
		}
		assert.False(t, g.Healthy())

		inner.EXPECT().SetItem(gomock.Any(), "k", "v").Return(nil)
		require.NoError(t, g.SetItem(ctx, "k", "v"))
		assert.True(t, g.Healthy())
	})

	t.Run("quota errors do not count as outages", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		inner := mocks.NewMockMedium(ctrl)
		g := NewGuarded(inner, circuit.New("postgres", circuit.WithFailureThreshold(1)), nil)

		inner.EXPECT().SetItem(gomock.Any(), "k", "v").Return(sentinel.ErrQuotaExceeded)
		assert.ErrorIs(t, g.SetItem(ctx, "k", "v"), sentinel.ErrQuotaExceeded)
		assert.True(t, g.Healthy())

		inner.EXPECT().RemoveItem(gomock.Any(), "k").Return(down)
		assert.Error(t, g.RemoveItem(ctx, "k"))
		assert.False(t, g.Healthy())
	})
}
