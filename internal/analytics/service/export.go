package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"time"

	"orbit/internal/access"
	activityModels "orbit/internal/activity/models"
	clientModels "orbit/internal/client/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

var (
	clientHeader   = []string{"Name", "Email", "Phone", "Company", "Tags", "Assigned To", "Created By", "Created At"}
	activityHeader = []string{"Type", "Date", "Description", "Client Name", "Assigned To", "Created At"}
)

// ExportClients renders every client of the caller's tenant as CSV, newest first.
func (s *Service) ExportClients(ctx context.Context) ([]byte, error) {
	p, scope, err := s.gate.Resolve(ctx, access.OpAnalyticsExport, id.TenantID{})
	if err != nil {
		return nil, err
	}
	clients, _, err := s.clients.List(ctx, clientModels.ListFilter{TenantID: scope.TenantID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load clients")
	}
	users, err := s.usersByID(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}
	records := make([][]string, 0, len(clients)+1)
	records = append(records, clientHeader)
	for _, c := range clients {
		records = append(records, []string{
			c.Name,
			c.Email,
			c.Phone,
			c.Company,
			strings.Join(c.Tags, ","),
			nameOf(users, c.AssignedTo),
			nameOf(users, c.CreatedBy),
			formatTime(c.CreatedAt),
		})
	}
	out, err := encodeCSV(records)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "clients exported",
		"tenant_id", scope.TenantID.String(),
		"actor_id", p.ID.String(),
		"rows", len(clients),
	)
	return out, nil
}

// ExportActivities renders every activity of the caller's tenant as CSV,
// most recent date first.
func (s *Service) ExportActivities(ctx context.Context) ([]byte, error) {
	p, scope, err := s.gate.Resolve(ctx, access.OpAnalyticsExport, id.TenantID{})
	if err != nil {
		return nil, err
	}
	activities, _, err := s.activities.List(ctx, activityModels.ListFilter{TenantID: scope.TenantID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activities")
	}
	clients, _, err := s.clients.List(ctx, clientModels.ListFilter{TenantID: scope.TenantID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load clients")
	}
	clientNames := make(map[id.ClientID]string, len(clients))
	for _, c := range clients {
		clientNames[c.ID] = c.Name
	}
	users, err := s.usersByID(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}
	records := make([][]string, 0, len(activities)+1)
	records = append(records, activityHeader)
	for _, a := range activities {
		records = append(records, []string{
			string(a.Type),
			formatTime(a.Date),
			a.Description,
			clientNames[a.ClientID],
			nameOf(users, a.AssignedTo),
			formatTime(a.CreatedAt),
		})
	}
	out, err := encodeCSV(records)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "activities exported",
		"tenant_id", scope.TenantID.String(),
		"actor_id", p.ID.String(),
		"rows", len(activities),
	)
	return out, nil
}

func encodeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode csv")
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
