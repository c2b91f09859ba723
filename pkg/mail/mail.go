package mail

import "context"

// Mailer delivers password-reset emails. The zero implementation used in
// tests records sends instead of delivering them.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, firstName, resetURL string) error
}
