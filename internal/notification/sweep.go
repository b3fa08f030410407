package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// DueActivity is the denormalized view the daily sweep needs.
type DueActivity struct {
	ActivityID    string
	TenantID      string
	Type          string
	Description   string
	Date          time.Time
	ClientName    string
	ClientEmail   string
	AssigneeName  string
	AssigneeEmail string
}

// AgendaSource lists activities dated in [from, to).
type AgendaSource interface {
	DueOn(ctx context.Context, from, to time.Time) ([]DueActivity, error)
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SweepResult struct {
	Activities int
	Sent       int
	Failed     int
}

// Sweep sends the daily client reminders and one digest per assignee.
type Sweep struct {
	source AgendaSource
	sender Sender
	loc    *time.Location
	logger *slog.Logger
}

func NewSweep(source AgendaSource, sender Sender, loc *time.Location, logger *slog.Logger) *Sweep {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweep{source: source, sender: sender, loc: loc, logger: logger}
}

// Run covers the calendar day containing day, in the sweep's location.
// A failed message never stops the rest of the batch.
func (s *Sweep) Run(ctx context.Context, day time.Time) (SweepResult, error) {
	local := day.In(s.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	due, err := s.source.DueOn(ctx, from, to)
	if err != nil {
		return SweepResult{}, fmt.Errorf("loading agenda: %w", err)
	}
	res := SweepResult{Activities: len(due)}

	digests := make(map[string][]DueActivity)
	names := make(map[string]string)
	for _, a := range due {
		a.Date = a.Date.In(s.loc)
		if a.ClientEmail != "" {
			s.deliver(ctx, DailyClientReminder(a), &res)
		}
		if a.AssigneeEmail != "" {
			digests[a.AssigneeEmail] = append(digests[a.AssigneeEmail], a)
			names[a.AssigneeEmail] = a.AssigneeName
		}
	}

	assignees := make([]string, 0, len(digests))
	for email := range digests {
		assignees = append(assignees, email)
	}
	sort.Strings(assignees)
	for _, email := range assignees {
		items := digests[email]
		sort.Slice(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date) })
		s.deliver(ctx, DailyDigest(names[email], email, from, items), &res)
	}

	s.logger.InfoContext(ctx, "daily sweep finished",
		"day", from.Format("2006-01-02"),
		"activities", res.Activities,
		"sent", res.Sent,
		"failed", res.Failed,
	)
	return res, nil
}

func (s *Sweep) deliver(ctx context.Context, msg Message, res *SweepResult) {
	if err := s.sender.Send(ctx, msg); err != nil {
		res.Failed++
		return
	}
	res.Sent++
}
