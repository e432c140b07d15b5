package notify

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/E-m-i-n-e-n-c-e/Revent/internal/notifications"
)

//go:embed templates/announcement.html
var templateFS embed.FS

var announcementTmpl = template.Must(template.ParseFS(templateFS, "templates/announcement.html"))

// NotificationRecorder persists an in-app notification alongside the email.
// Optional; a nil recorder skips the rows.
type NotificationRecorder interface {
	Record(ctx context.Context, n notifications.Notification) error
}

// Service dispatches announcement emails to the bounded recipient list.
// Delivery is best-effort per recipient: one failing address is logged and
// counted, and never blocks the rest of the batch or the caller.
type Service struct {
	recipients  RecipientSource
	mailer      Mailer
	recorder    NotificationRecorder
	logger      *slog.Logger
	parallelism int
}

// NewService builds the notifier. parallelism caps concurrent SMTP sends;
// values below one fall back to a small default.
func NewService(recipients RecipientSource, mailer Mailer, recorder NotificationRecorder, logger *slog.Logger, parallelism int) *Service {
	if parallelism < 1 {
		parallelism = 4
	}
	return &Service{
		recipients:  recipients,
		mailer:      mailer,
		recorder:    recorder,
		logger:      logger,
		parallelism: parallelism,
	}
}

type announcementData struct {
	RecipientName string
	ClubID        string
	Title         string
	Message       string
}

// Announce emails the newly added announcement to every recipient. The item
// is the head-of-list entry exposed by the classifier; missing fields render
// as blanks rather than failing the batch.
func (s *Service) Announce(ctx context.Context, clubID string, item map[string]any) {
	recipients, err := s.recipients.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not load announcement recipients", "error", err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	title := stringField(item, "title")
	message := stringField(item, "message")
	if message == "" {
		message = stringField(item, "description")
	}
	subject := "New announcement"
	if title != "" {
		subject = "New announcement: " + title
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, to := range recipients {
		g.Go(func() error {
			s.sendOne(gctx, to, clubID, subject, title, message)
			// Errors are handled per recipient; never cancel siblings.
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) sendOne(ctx context.Context, to, clubID, subject, title, message string) {
	data := announcementData{
		RecipientName: nameFromEmail(to),
		ClubID:        clubID,
		Title:         title,
		Message:       message,
	}

	var body bytes.Buffer
	if err := announcementTmpl.Execute(&body, data); err != nil {
		s.logger.ErrorContext(ctx, "render announcement email", "to", to, "error", err)
		return
	}

	if err := s.mailer.Send(ctx, to, subject, body.String()); err != nil {
		s.logger.WarnContext(ctx, "announcement email failed", "to", to, "error", err)
		return
	}

	if s.recorder != nil {
		n := notifications.Notification{UserID: to, Title: subject, Body: message}
		if err := s.recorder.Record(ctx, n); err != nil {
			s.logger.WarnContext(ctx, "notification row failed", "to", to, "error", err)
		}
	}
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

// nameFromEmail derives a greeting name from the local part of an address:
// "jane.doe@x.com" becomes "Jane".
func nameFromEmail(email string) string {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}
	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 || parts[0] == "" {
		return "there"
	}
	runes := []rune(parts[0])
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
