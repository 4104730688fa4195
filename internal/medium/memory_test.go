package medium

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"blocknexus/pkg/platform/sentinel"
)

type MemorySuite struct {
	suite.Suite
	ctx context.Context
}

func (s *MemorySuite) SetupTest() {
	s.ctx = context.Background()
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) TestItemLifecycle() {
	s.Run("missing key reports ok=false without error", func() {
		m := NewMemory()
		value, ok, err := m.GetItem(s.ctx, "absent")
		s.Require().NoError(err)
		s.False(ok)
		s.Empty(value)
	})

	s.Run("set then get returns stored value", func() {
		m := NewMemory()
		s.Require().NoError(m.SetItem(s.ctx, "k", `{"a":1}`))
		value, ok, err := m.GetItem(s.ctx, "k")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(`{"a":1}`, value)
	})

	s.Run("remove deletes and is idempotent", func() {
		m := NewMemory()
		s.Require().NoError(m.SetItem(s.ctx, "k", "v"))
		s.Require().NoError(m.RemoveItem(s.ctx, "k"))
		s.Require().NoError(m.RemoveItem(s.ctx, "k"))
		_, ok, err := m.GetItem(s.ctx, "k")
		s.Require().NoError(err)
		s.False(ok)
		s.Zero(m.Used())
	})

	s.Run("keys are case sensitive", func() {
		m := NewMemory()
		s.Require().NoError(m.SetItem(s.ctx, "0xAbC", "upper"))
		_, ok, err := m.GetItem(s.ctx, "0xabc")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *MemorySuite) TestQuota() {
	s.Run("rejects writes beyond quota", func() {
		m := NewMemory(WithQuota(10))
		err := m.SetItem(s.ctx, "key", "0123456789")
		s.Require().ErrorIs(err, sentinel.ErrQuotaExceeded)
		_, ok, _ := m.GetItem(s.ctx, "key")
		s.False(ok)
	})

	s.Run("overwriting releases the previous value size", func() {
		m := NewMemory(WithQuota(10))
		s.Require().NoError(m.SetItem(s.ctx, "k", "123456789"))
		s.Require().NoError(m.SetItem(s.ctx, "k", "987654321"))
		s.Equal(10, m.Used())
	})

	s.Run("removal frees space for later writes", func() {
		m := NewMemory(WithQuota(10))
		s.Require().NoError(m.SetItem(s.ctx, "a", "12345678"))
		s.Require().ErrorIs(m.SetItem(s.ctx, "b", "12345678"), sentinel.ErrQuotaExceeded)
		s.Require().NoError(m.RemoveItem(s.ctx, "a"))
		s.Require().NoError(m.SetItem(s.ctx, "b", "12345678"))
	})
}
