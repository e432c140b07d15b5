package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/notifications"
)

type fakeMailer struct {
	mu      sync.Mutex
	sent    []string
	bodies  map[string]string
	failFor map[string]bool
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{bodies: make(map[string]string), failFor: make(map[string]bool)}
}

func (m *fakeMailer) Send(_ context.Context, to, _ string, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return errors.New("relay rejected recipient")
	}
	m.sent = append(m.sent, to)
	m.bodies[to] = htmlBody
	return nil
}

type fakeRecorder struct {
	mu   sync.Mutex
	rows []notifications.Notification
}

func (r *fakeRecorder) Record(_ context.Context, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, n)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAnnounce_SendsToEveryRecipient(t *testing.T) {
	mailer := newFakeMailer()
	recorder := &fakeRecorder{}
	svc := NewService(StaticRecipients{"a@x.com", "b@x.com", "c@x.com"}, mailer, recorder, discard(), 2)

	svc.Announce(context.Background(), "club-1", map[string]any{
		"title":   "Hi",
		"message": "Meeting at noon",
	})

	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com", "c@x.com"}, mailer.sent)
	assert.Len(t, recorder.rows, 3)

	body := mailer.bodies["a@x.com"]
	assert.Contains(t, body, "Hi")
	assert.Contains(t, body, "Meeting at noon")
	assert.Contains(t, body, "club-1")
}

func TestAnnounce_OneFailureDoesNotBlockTheBatch(t *testing.T) {
	mailer := newFakeMailer()
	mailer.failFor["b@x.com"] = true
	svc := NewService(StaticRecipients{"a@x.com", "b@x.com", "c@x.com"}, mailer, nil, discard(), 1)

	svc.Announce(context.Background(), "club-1", map[string]any{"title": "Hi"})

	assert.ElementsMatch(t, []string{"a@x.com", "c@x.com"}, mailer.sent)
}

func TestAnnounce_MissingFieldsRenderBlank(t *testing.T) {
	mailer := newFakeMailer()
	svc := NewService(StaticRecipients{"a@x.com"}, mailer, nil, discard(), 1)

	svc.Announce(context.Background(), "", map[string]any{})

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.bodies["a@x.com"], "new announcement")
}

func TestAnnounce_EmptyRecipientListIsANoOp(t *testing.T) {
	mailer := newFakeMailer()
	svc := NewService(StaticRecipients{}, mailer, nil, discard(), 4)

	svc.Announce(context.Background(), "club-1", map[string]any{"title": "Hi"})

	assert.Empty(t, mailer.sent)
}

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@x.com", "Jane"},
		{"bob@x.com", "Bob"},
		{"under_score@x.com", "Under"},
		{"@x.com", "there"},
		{"", "there"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nameFromEmail(tt.email), tt.email)
	}
}

func TestAnnounce_GreetsByDerivedName(t *testing.T) {
	mailer := newFakeMailer()
	svc := NewService(StaticRecipients{"jane.doe@x.com"}, mailer, nil, discard(), 1)

	svc.Announce(context.Background(), "club-1", map[string]any{"title": "Hi"})

	require.Len(t, mailer.sent, 1)
	assert.True(t, strings.Contains(mailer.bodies["jane.doe@x.com"], "Hi Jane,"))
}
