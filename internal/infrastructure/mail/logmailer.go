// Package mail adapts the Mailer port. Actual delivery belongs to an
// external service; the log adapter records what would have been sent so
// the invitation flow is observable end to end without one.
package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/ports"
)

// LogMailer writes each invitation to the structured log instead of
// delivering it.
type LogMailer struct {
	companyName string
	log         zerolog.Logger
}

func NewLogMailer(companyName string, log zerolog.Logger) *LogMailer {
	return &LogMailer{companyName: companyName, log: log}
}

func (m *LogMailer) SendInvitation(_ context.Context, mail ports.InvitationMail) error {
	m.log.Info().
		Str("to", mail.Email).
		Str("role", string(mail.Role)).
		Str("inviter", mail.InviterName).
		Str("company", m.companyName).
		Str("token", mail.Token).
		Str("expires_at", mail.ExpiresAt).
		Msg("invitation email")
	return nil
}
