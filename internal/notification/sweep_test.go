package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type agendaMock struct {
	mock.Mock
}

func (m *agendaMock) DueOn(ctx context.Context, from, to time.Time) ([]DueActivity, error) {
	args := m.Called(ctx, from, to)
	due, _ := args.Get(0).([]DueActivity)
	return due, args.Error(1)
}

type flakySender struct {
	mu     sync.Mutex
	sent   []Message
	failTo string
}

func (s *flakySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.To == s.failTo {
		return errors.New("mailbox unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestSweepRun(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	day := time.Date(2026, 3, 2, 6, 0, 0, 0, loc)

	agenda := new(agendaMock)
	agenda.On("DueOn", mock.Anything,
		time.Date(2026, 3, 2, 0, 0, 0, 0, loc),
		time.Date(2026, 3, 3, 0, 0, 0, 0, loc),
	).Return([]DueActivity{
		{Type: "Meeting", Date: time.Date(2026, 3, 2, 14, 0, 0, 0, loc), ClientName: "Ada", ClientEmail: "ada@client.test", AssigneeName: "Sam", AssigneeEmail: "sam@acme.test"},
		{Type: "Call", Date: time.Date(2026, 3, 2, 10, 0, 0, 0, loc), ClientName: "Bob", ClientEmail: "bounce@client.test", AssigneeName: "Sam", AssigneeEmail: "sam@acme.test"},
		{Type: "Note", Date: time.Date(2026, 3, 2, 11, 0, 0, 0, loc), ClientName: "Cy", ClientEmail: "cy@client.test"},
	}, nil).Once()
	sender := &flakySender{failTo: "bounce@client.test"}

	res, err := NewSweep(agenda, sender, loc, discard()).Run(context.Background(), day)
	require.NoError(t, err)

	agenda.AssertExpectations(t)
	assert.Equal(t, SweepResult{Activities: 3, Sent: 3, Failed: 1}, res)

	var digest *Message
	for i := range sender.sent {
		if sender.sent[i].Kind == KindDailyDigest {
			digest = &sender.sent[i]
		}
	}
	require.NotNil(t, digest)
	assert.Equal(t, "sam@acme.test", digest.To)
	assert.Less(t, strings.Index(digest.Body, "10:00 Call"), strings.Index(digest.Body, "14:00 Meeting"))
}

func TestSweepSourceError(t *testing.T) {
	agenda := new(agendaMock)
	agenda.On("DueOn", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	_, err := NewSweep(agenda, &flakySender{}, nil, discard()).Run(context.Background(), time.Now())
	assert.ErrorContains(t, err, "loading agenda")
}
