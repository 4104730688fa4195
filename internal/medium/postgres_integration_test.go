//go:build integration

package medium_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"blocknexus/internal/medium"
	"blocknexus/pkg/testutil/containers"
)

type PostgresMediumSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	medium *medium.Postgres
	now    time.Time
}

func TestPostgresMediumSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresMediumSuite))
}

func (s *PostgresMediumSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.medium = medium.NewPostgres(s.pg.DB, medium.WithPostgresClock(func() time.Time { return s.now }))
	s.Require().NoError(s.medium.Migrate(context.Background()))
}

func (s *PostgresMediumSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE kv_items`)
	s.Require().NoError(err)
}

func (s *PostgresMediumSuite) TestUpsertOverwrites() {
	ctx := context.Background()
	s.Require().NoError(s.medium.SetItem(ctx, "blockNexus_KYC_Data", `{}`))
	s.Require().NoError(s.medium.SetItem(ctx, "blockNexus_KYC_Data", `{"0xA":{}}`))

	value, ok, err := s.medium.GetItem(ctx, "blockNexus_KYC_Data")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(`{"0xA":{}}`, value)

	var count int
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT COUNT(*) FROM kv_items`).Scan(&count))
	s.Equal(1, count)

	var updatedAt time.Time
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT updated_at FROM kv_items WHERE key = $1`, "blockNexus_KYC_Data").Scan(&updatedAt))
	s.True(s.now.Equal(updatedAt))
}

func (s *PostgresMediumSuite) TestRemoveMissingIsNoop() {
	ctx := context.Background()
	s.Require().NoError(s.medium.RemoveItem(ctx, "absent"))
	_, ok, err := s.medium.GetItem(ctx, "absent")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PostgresMediumSuite) TestMigrateIsIdempotent() {
	s.Require().NoError(s.medium.Migrate(context.Background()))
}
