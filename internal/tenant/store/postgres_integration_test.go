//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"orbit/internal/plan"
	"orbit/internal/tenant/store"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/testutil"
	"orbit/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.Postgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateModuleTables(context.Background()))
}

// Concurrent charges never push storage_used past the ceiling.
func (s *PostgresStoreSuite) TestConcurrentChargeStorage() {
	ctx := context.Background()
	tenantID := s.postgres.CreateTestTenant(ctx, s.T())

	result := testutil.RaceCtx(ctx, 30, func(ctx context.Context, _ int) error {
		return s.store.ChargeStorage(ctx, tenantID, 10*plan.MiB)
	})

	s.Equal(int32(0), result.Errors)
	s.Equal(int32(10), result.Successes)
	s.Equal(int32(20), result.QuotaDenied)

	usage, err := s.store.GetUsage(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(100*plan.MiB, usage.StorageUsed)
}

func (s *PostgresStoreSuite) TestReleaseFloorsAtZero() {
	ctx := context.Background()
	tenantID := s.postgres.CreateTestTenant(ctx, s.T())

	s.Require().NoError(s.store.ChargeStorage(ctx, tenantID, plan.MiB))
	s.Require().NoError(s.store.ReleaseStorage(ctx, tenantID, 5*plan.MiB))

	usage, err := s.store.GetUsage(ctx, tenantID)
	s.Require().NoError(err)
	s.Zero(usage.StorageUsed)
}

func (s *PostgresStoreSuite) TestDeleteCascadesUsers() {
	ctx := context.Background()
	tenantID := s.postgres.CreateTestTenant(ctx, s.T())
	s.postgres.CreateTestUser(ctx, s.T(), tenantID)

	s.Require().NoError(s.store.Delete(ctx, tenantID))

	var remaining int
	s.Require().NoError(s.postgres.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID.String()).Scan(&remaining))
	s.Zero(remaining)
}

// A downgrade lowers the ceiling below current usage without touching it.
func (s *PostgresStoreSuite) TestDowngradeKeepsUsage() {
	ctx := context.Background()
	tenant := testutil.NewTenantBuilder().WithPlan(plan.Pro).Build()
	s.Require().NoError(s.store.Create(ctx, tenant))
	s.Require().NoError(s.store.ChargeStorage(ctx, tenant.ID, 500*plan.MiB))

	tenant.ApplyPlan(plan.Free, time.Now().UTC())
	s.Require().NoError(s.store.Update(ctx, tenant))

	found, err := s.store.FindByID(ctx, tenant.ID)
	s.Require().NoError(err)
	s.Equal(plan.Free, found.Plan)
	s.Equal(plan.Free.Limits(), found.Limits)
	s.Equal(500*plan.MiB, found.StorageUsed)
	s.True(found.OverStorage())

	s.ErrorIs(s.store.ChargeStorage(ctx, tenant.ID, 1), sentinel.ErrLimitReached)
	s.Require().NoError(s.store.ReleaseStorage(ctx, tenant.ID, 450*plan.MiB))
	s.Require().NoError(s.store.ChargeStorage(ctx, tenant.ID, plan.MiB))
}
