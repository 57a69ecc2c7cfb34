package services

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/cashflow/src/config"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/utils"
)

func NewNotificationService(cfg *config.AppConfig, clock func() time.Time) NotificationService {
	if clock == nil {
		clock = time.Now
	}
	if cfg == nil {
		logger.L.Error("Configuration is nil. Notification service will default to mock.")
		return &MockNotificationService{clock: clock}
	}

	provider := strings.ToLower(cfg.NotifyProvider)
	logger.L.Info("Initializing notification service", "provider", provider)

	switch provider {
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunPrivateAPIKey == "" || cfg.SenderEmail == "" || cfg.DigestRecipient == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, SenderEmail or DigestRecipient missing). Falling back to MockNotificationService.")
			return &MockNotificationService{clock: clock}
		}
		mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", cfg.MailgunDomain)
		return &MailgunNotificationService{
			mg:          mg,
			senderEmail: cfg.SenderEmail,
			senderName:  cfg.SenderName,
			recipient:   cfg.DigestRecipient,
			clock:       clock,
		}
	default:
		logger.L.Info("Defaulting to MockNotificationService.")
		return &MockNotificationService{clock: clock}
	}
}

// DigestLine renders one occurrence as "1. Rent - $900.00 EXPENSE on 2024-06-01 (3 days from now)".
func DigestLine(n int, tx models.Transaction, now time.Time) string {
	line := fmt.Sprintf("%d. %s - %s %s on %s", n, tx.Title, utils.FormatAmount(tx.Amount), tx.Type, tx.Date)
	if d, err := utils.ParseDate(tx.Date); err == nil {
		line += " (" + humanize.RelTime(d, utils.DateOf(now), "ago", "from now") + ")"
	}
	return line
}

// DigestBody builds the plain-text digest, listing occurrences in date order.
func DigestBody(occurrences []models.Transaction, now time.Time) string {
	sorted := make([]models.Transaction, len(occurrences))
	copy(sorted, occurrences)
	sortOccurrences(sorted)

	var b strings.Builder
	fmt.Fprintf(&b, "%d upcoming transaction(s) were scheduled:\n\n", len(sorted))
	for i, tx := range sorted {
		b.WriteString(DigestLine(i+1, tx, now))
		b.WriteString("\n")
	}
	return b.String()
}

func sortOccurrences(txs []models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date < txs[j].Date
		}
		return txs[i].ID < txs[j].ID
	})
}

type MailgunNotificationService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	recipient   string
	clock       func() time.Time
}

func (s *MailgunNotificationService) SendUpcomingDigest(ctx context.Context, occurrences []models.Transaction) error {
	if len(occurrences) == 0 {
		return nil
	}
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := fmt.Sprintf("CashFlow: %d upcoming transaction(s) scheduled", len(occurrences))
	plainTextBody := DigestBody(occurrences, s.clock())

	htmlBody := fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<pre>%s</pre>
		</body>
	</html>`, html.EscapeString(plainTextBody))

	digestID := uuid.NewString()
	message := s.mg.NewMessage(from, subject, plainTextBody, s.recipient)
	message.SetHtml(htmlBody)
	message.AddTag("upcoming-digest")
	message.AddHeader("X-Digest-ID", digestID)

	ctx, cancel := context.WithTimeout(ctx, time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send upcoming digest via Mailgun", "error", err, "to", s.recipient, "digestID", digestID, "mailgunResp", resp)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Upcoming digest sent via Mailgun", "to", s.recipient, "digestID", digestID, "id", id, "occurrences", len(occurrences))
	return nil
}

// MockNotificationService logs the digest instead of sending it.
type MockNotificationService struct {
	clock func() time.Time

	mu   sync.Mutex
	sent [][]models.Transaction
}

// Sent returns the digests recorded so far.
func (m *MockNotificationService) Sent() [][]models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]models.Transaction(nil), m.sent...)
}

func (m *MockNotificationService) SendUpcomingDigest(ctx context.Context, occurrences []models.Transaction) error {
	if len(occurrences) == 0 {
		return nil
	}
	now := time.Now()
	if m.clock != nil {
		now = m.clock()
	}
	m.mu.Lock()
	m.sent = append(m.sent, occurrences)
	m.mu.Unlock()
	logger.L.Info("MockNotificationService: Would send upcoming digest.", "occurrences", len(occurrences), "body", DigestBody(occurrences, now))
	return nil
}
