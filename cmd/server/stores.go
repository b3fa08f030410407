package main

import (
	"context"
	"database/sql"

	activityService "orbit/internal/activity/service"
	activityStore "orbit/internal/activity/store"
	analyticsService "orbit/internal/analytics/service"
	authService "orbit/internal/auth/service"
	clientService "orbit/internal/client/service"
	clientStore "orbit/internal/client/store"
	"orbit/internal/platform/database"
	"orbit/internal/quota"
	subService "orbit/internal/subscription/service"
	subStore "orbit/internal/subscription/store"
	tenantService "orbit/internal/tenant/service"
	tenantStore "orbit/internal/tenant/store"
	userService "orbit/internal/user/service"
	userStore "orbit/internal/user/store"
	"orbit/pkg/platform/tx"
)

// Each store backs several services; these unions let one value serve all
// of them whichever backend is selected.
type (
	users interface {
		userService.Store
		authService.UserStore
		clientService.Members
		tenantService.Members
		analyticsService.Users
		quota.Counter
	}
	clients interface {
		clientService.Store
		activityService.Clients
		tenantService.Clients
		analyticsService.Clients
	}
	activities interface {
		activityService.Store
		activityService.AgendaStore
		tenantService.Activities
		analyticsService.Activities
	}
	tenants interface {
		tenantService.Store
		subService.TenantStore
		analyticsService.Tenants
		quota.LimitStore
	}
	txRunner interface {
		RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	}
)

type stores struct {
	users      users
	clients    clients
	activities activities
	tenants    tenants
	drafts     subService.DraftStore
	events     subService.EventLog
	tx         txRunner
}

func memoryStores() *stores {
	return &stores{
		users:      userStore.NewInMemory(),
		clients:    clientStore.NewInMemory(),
		activities: activityStore.NewInMemory(),
		tenants:    tenantStore.NewInMemory(),
		drafts:     subStore.NewInMemoryDrafts(),
		events:     subStore.NewInMemoryEvents(),
		tx:         tx.NewInMemory(),
	}
}

func postgresStores(db *sql.DB) *stores {
	return &stores{
		users:      userStore.NewPostgres(db),
		clients:    clientStore.NewPostgres(db),
		activities: activityStore.NewPostgres(db),
		tenants:    tenantStore.NewPostgres(db),
		drafts:     subStore.NewPostgresDrafts(db),
		events:     subStore.NewPostgresEvents(db),
		tx:         database.NewTxRunner(db),
	}
}
