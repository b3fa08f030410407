package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientModels "orbit/internal/client/models"
	"orbit/internal/notification"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
)

// Agenda feeds the daily sweep with activities joined to their client and
// assignee. Deleted clients or users leave the matching fields empty.
type Agenda struct {
	store   AgendaStore
	clients Clients
	members Members
}

func NewAgenda(store AgendaStore, clients Clients, members Members) *Agenda {
	return &Agenda{store: store, clients: clients, members: members}
}

func (a *Agenda) DueOn(ctx context.Context, from, to time.Time) ([]notification.DueActivity, error) {
	activities, err := a.store.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	clients := make(map[id.ClientID]*clientModels.Client)
	members := make(map[id.UserID]*userModels.User)

	due := make([]notification.DueActivity, 0, len(activities))
	for _, act := range activities {
		item := notification.DueActivity{
			ActivityID:  act.ID.String(),
			TenantID:    act.TenantID.String(),
			Type:        string(act.Type),
			Description: act.Description,
			Date:        act.Date,
		}
		client, ok := clients[act.ClientID]
		if !ok {
			client, err = a.clients.FindByID(ctx, act.ClientID)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return nil, fmt.Errorf("loading client %s: %w", act.ClientID, err)
			}
			clients[act.ClientID] = client
		}
		if client != nil {
			item.ClientName = client.Name
			item.ClientEmail = client.Email
		}
		if !act.AssignedTo.IsNil() {
			member, ok := members[act.AssignedTo]
			if !ok {
				member, err = a.members.FindByID(ctx, act.AssignedTo)
				if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
					return nil, fmt.Errorf("loading assignee %s: %w", act.AssignedTo, err)
				}
				members[act.AssignedTo] = member
			}
			if member != nil && member.Active {
				item.AssigneeName = member.Name
				item.AssigneeEmail = member.Email
			}
		}
		due = append(due, item)
	}
	return due, nil
}
