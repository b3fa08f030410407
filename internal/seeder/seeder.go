// Package seeder fills the in-memory stores with a demo organization so a
// development server is usable without any setup calls.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"orbit/internal/access"
	activityModels "orbit/internal/activity/models"
	clientModels "orbit/internal/client/models"
	"orbit/internal/plan"
	tenantModels "orbit/internal/tenant/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "demo-password"

type TenantStore interface {
	Create(ctx context.Context, t *tenantModels.Tenant) error
}

type UserStore interface {
	Create(ctx context.Context, u *userModels.User) error
}

type ClientStore interface {
	Create(ctx context.Context, c *clientModels.Client) error
}

type ActivityStore interface {
	Create(ctx context.Context, a *activityModels.Activity) error
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// Result counts what SeedAll created.
type Result struct {
	TenantID   id.TenantID
	Users      int
	Clients    int
	Activities int
}

// Seeder populates stores with demo data.
type Seeder struct {
	tenants    TenantStore
	users      UserStore
	clients    ClientStore
	activities ActivityStore
	hasher     PasswordHasher
	logger     *slog.Logger
	now        func() time.Time
}

func New(tenants TenantStore, users UserStore, clients ClientStore, activities ActivityStore, hasher PasswordHasher, logger *slog.Logger) *Seeder {
	return &Seeder{
		tenants:    tenants,
		users:      users,
		clients:    clients,
		activities: activities,
		hasher:     hasher,
		logger:     logger,
		now:        time.Now,
	}
}

// SeedAll creates a platform operator and one Pro organization with staff,
// clients and a week of activities around today.
func (s *Seeder) SeedAll(ctx context.Context) (*Result, error) {
	s.logger.InfoContext(ctx, "seeding demo data...")
	now := s.now()

	hash, err := s.hasher.Hash(DemoPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash demo password: %w", err)
	}

	tenant, err := tenantModels.NewTenant(id.NewTenantID(), "Acme Demo", "1 Demo Street", "", plan.Pro, now)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to seed tenant: %w", err)
	}
	res := &Result{TenantID: tenant.ID}

	users, err := s.seedUsers(ctx, tenant.ID, hash, now)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	res.Users = len(users)

	clients, err := s.seedClients(ctx, tenant.ID, users, now)
	if err != nil {
		return nil, fmt.Errorf("failed to seed clients: %w", err)
	}
	res.Clients = len(clients)

	res.Activities, err = s.seedActivities(ctx, tenant.ID, clients, users, now)
	if err != nil {
		return nil, fmt.Errorf("failed to seed activities: %w", err)
	}

	s.logger.InfoContext(ctx, "demo data seeded successfully",
		"tenant_id", tenant.ID.String(),
		"users", res.Users,
		"clients", res.Clients,
		"activities", res.Activities,
	)
	return res, nil
}

// seedUsers returns the tenant members keyed by role.
func (s *Seeder) seedUsers(ctx context.Context, tenantID id.TenantID, hash string, now time.Time) (map[access.Role]*userModels.User, error) {
	demoUsers := []struct {
		name  string
		email string
		role  access.Role
	}{
		{"Sam Super", "superadmin@example.com", access.RoleSuperAdmin},
		{"Olivia Owner", "owner@example.com", access.RoleOwner},
		{"Adam Admin", "admin@example.com", access.RoleAdmin},
		{"Stella Staff", "staff@example.com", access.RoleStaff},
	}

	members := make(map[access.Role]*userModels.User)
	for _, u := range demoUsers {
		tid := tenantID
		if u.role == access.RoleSuperAdmin {
			tid = id.TenantID{}
		}
		user, err := userModels.NewUser(id.NewUserID(), tid, u.name, u.email, hash, u.role, now)
		if err != nil {
			return nil, err
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		members[u.role] = user
	}
	return members, nil
}

func (s *Seeder) seedClients(ctx context.Context, tenantID id.TenantID, users map[access.Role]*userModels.User, now time.Time) ([]*clientModels.Client, error) {
	admin, staff := users[access.RoleAdmin], users[access.RoleStaff]
	demoClients := []struct {
		name     string
		email    string
		company  string
		tags     []string
		assignee *userModels.User
		age      time.Duration
	}{
		{"Ada Lovelace", "ada@example.com", "Analytical Engines", []string{"vip", "math"}, admin, 70 * 24 * time.Hour},
		{"Grace Hopper", "grace@example.com", "Compilers Inc", []string{"navy"}, staff, 40 * 24 * time.Hour},
		{"Alan Turing", "alan@example.com", "Bletchley", []string{"crypto", "vip"}, staff, 10 * 24 * time.Hour},
		{"Edsger Dijkstra", "edsger@example.com", "Shortest Paths", nil, admin, 24 * time.Hour},
	}

	var clients []*clientModels.Client
	for _, c := range demoClients {
		client, err := clientModels.NewClient(id.NewClientID(), tenantID, c.name, c.email, "+15550000000", c.company,
			c.tags, c.assignee.ID, admin.ID, now.Add(-c.age))
		if err != nil {
			return nil, err
		}
		if err := s.clients.Create(ctx, client); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, nil
}

func (s *Seeder) seedActivities(ctx context.Context, tenantID id.TenantID, clients []*clientModels.Client, users map[access.Role]*userModels.User, now time.Time) (int, error) {
	demoActivities := []struct {
		clientIdx int
		kind      activityModels.Type
		note      string
		offset    time.Duration
	}{
		{0, activityModels.TypeMeeting, "Quarterly review", -72 * time.Hour},
		{0, activityModels.TypeCall, "Follow-up on proposal", 2 * time.Hour},
		{1, activityModels.TypeEmail, "Sent onboarding pack", -24 * time.Hour},
		{2, activityModels.TypeMeeting, "Security workshop", 3 * time.Hour},
		{2, activityModels.TypeNote, "Prefers morning calls", -48 * time.Hour},
		{3, activityModels.TypeCall, "Intro call", 26 * time.Hour},
	}

	count := 0
	for _, a := range demoActivities {
		if a.clientIdx >= len(clients) {
			continue
		}
		client := clients[a.clientIdx]
		activity, err := activityModels.NewActivity(id.NewActivityID(), tenantID, client.ID, a.kind, a.note,
			now.Add(a.offset), client.AssignedTo, users[access.RoleAdmin].ID, now)
		if err != nil {
			return count, err
		}
		if err := s.activities.Create(ctx, activity); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
