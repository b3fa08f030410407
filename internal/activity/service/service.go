package service

import (
	"context"
	"log/slog"
	"time"

	"orbit/internal/access"
	"orbit/internal/activity/models"
	clientModels "orbit/internal/client/models"
	"orbit/internal/notification"
	"orbit/internal/objectstore"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
)

// Store is the persistence port for activities.
// Error Contract:
// - FindByID, LockByID, Update and Delete return sentinel.ErrNotFound for a missing activity
// - LockByID holds the row until the surrounding transaction ends
type Store interface {
	Create(ctx context.Context, a *models.Activity) error
	FindByID(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	LockByID(ctx context.Context, activityID id.ActivityID) (*models.Activity, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Activity, int, error)
	Update(ctx context.Context, a *models.Activity) error
	Delete(ctx context.Context, activityID id.ActivityID) error
}

// AgendaStore lists activities across tenants for the daily sweep.
type AgendaStore interface {
	ListBetween(ctx context.Context, from time.Time, to time.Time) ([]*models.Activity, error)
}

// Clients resolves the client an activity belongs to.
type Clients interface {
	FindByID(ctx context.Context, clientID id.ClientID) (*clientModels.Client, error)
}

// Members resolves assignees.
type Members interface {
	FindByID(ctx context.Context, userID id.UserID) (*userModels.User, error)
}

// Storage checks and moves the tenant's storage usage.
type Storage interface {
	CheckStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error
	ChargeStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error
	ReleaseStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error
}

// Objects uploads and deletes attachment files.
type Objects interface {
	Upload(ctx context.Context, obj objectstore.Object) (string, error)
	Delete(ctx context.Context, url string) error
}

// Notifier queues best-effort email. It must not block.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message) bool
}

// StoreTx runs fn as one unit of work.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages activities and their attachments.
type Service struct {
	store    Store
	clients  Clients
	members  Members
	storage  Storage
	objects  Objects
	notifier Notifier
	gate     *access.Gate
	tx       StoreTx
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
	auditor  *auditEmitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the zone date-only inputs are read in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(store Store, clients Clients, members Members, storage Storage, objects Objects, notifier Notifier, gate *access.Gate, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		store:    store,
		clients:  clients,
		members:  members,
		storage:  storage,
		objects:  objects,
		notifier: notifier,
		gate:     gate,
		tx:       tx,
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.auditor = newAuditEmitter(s.logger)
	return s
}
