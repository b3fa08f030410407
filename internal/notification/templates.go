package notification

import (
	"fmt"
	"strings"
	"time"
)

const (
	KindClientWelcome     = "client_welcome"
	KindClientAssigned    = "client_assigned"
	KindActivityScheduled = "activity_scheduled"
	KindActivityCancelled = "activity_cancelled"
	KindDailyReminder     = "daily_reminder"
	KindDailyDigest       = "daily_digest"
)

const dateLayout = "Monday, 02 Jan 2006 15:04"

// ClientWelcome greets a newly created client.
func ClientWelcome(clientName, clientEmail, tenantName string) Message {
	return Message{
		Kind:    KindClientWelcome,
		To:      clientEmail,
		Subject: "Welcome to " + orDefault(tenantName, "our team"),
		Body: fmt.Sprintf("Hello %s,\n\nYou have been added as a client of %s. We look forward to working with you.\n",
			orDefault(clientName, "there"), orDefault(tenantName, "our team")),
	}
}

// ClientAssigned tells a staff member a client was assigned to them.
func ClientAssigned(assigneeName, assigneeEmail, clientName, clientEmail string) Message {
	return Message{
		Kind:    KindClientAssigned,
		To:      assigneeEmail,
		Subject: "New Client Assigned",
		Body: fmt.Sprintf("Hello %s,\n\nThe client %s (%s) has been assigned to you.\n",
			orDefault(assigneeName, "there"), clientName, clientEmail),
	}
}

// ActivityScheduled notifies a client of an upcoming activity.
func ActivityScheduled(clientName, clientEmail, activityType, description string, at time.Time) Message {
	return Message{
		Kind:    KindActivityScheduled,
		To:      clientEmail,
		Subject: fmt.Sprintf("%s scheduled for %s", activityType, at.Format("02 Jan 2006")),
		Body: fmt.Sprintf("Hello %s,\n\nA %s has been scheduled on %s.\n%s",
			orDefault(clientName, "there"), strings.ToLower(activityType), at.Format(dateLayout), details(description)),
	}
}

// ActivityCancelled notifies a client that an activity was removed.
func ActivityCancelled(clientName, clientEmail, activityType string, at time.Time) Message {
	return Message{
		Kind:    KindActivityCancelled,
		To:      clientEmail,
		Subject: fmt.Sprintf("%s on %s cancelled", activityType, at.Format("02 Jan 2006")),
		Body: fmt.Sprintf("Hello %s,\n\nThe %s planned for %s has been cancelled.\n",
			orDefault(clientName, "there"), strings.ToLower(activityType), at.Format(dateLayout)),
	}
}

// DailyClientReminder reminds a client of an activity happening today.
func DailyClientReminder(a DueActivity) Message {
	return Message{
		Kind:    KindDailyReminder,
		To:      a.ClientEmail,
		Subject: "Reminder: " + a.Type + " today",
		Body: fmt.Sprintf("Hello %s,\n\nThis is a reminder of your %s today at %s.\n%s",
			orDefault(a.ClientName, "there"), strings.ToLower(a.Type), a.Date.Format("15:04"), details(a.Description)),
	}
}

// DailyDigest lists the day's activities for one assignee.
func DailyDigest(assigneeName, assigneeEmail string, day time.Time, items []DueActivity) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYou have %d activities on %s:\n\n",
		orDefault(assigneeName, "there"), len(items), day.Format("02 Jan 2006"))
	for _, it := range items {
		fmt.Fprintf(&b, "- %s %s with %s", it.Date.Format("15:04"), it.Type, orDefault(it.ClientName, it.ClientEmail))
		if it.Description != "" {
			fmt.Fprintf(&b, ": %s", it.Description)
		}
		b.WriteString("\n")
	}
	return Message{
		Kind:    KindDailyDigest,
		To:      assigneeEmail,
		Subject: fmt.Sprintf("Your agenda for %s", day.Format("02 Jan 2006")),
		Body:    b.String(),
	}
}

func details(description string) string {
	if description == "" {
		return ""
	}
	return "\nDetails: " + description + "\n"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
