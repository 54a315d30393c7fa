// Package mail delivers password-reset passcodes over SMTP.
package mail

import (
	"fmt"

	"github.com/abigailajohn/VVMA/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer dispatches OTP mail. Delivery failure is non-fatal to issuance.
type Mailer interface {
	SendOTP(email, code string) error
}

// SMTPMailer sends OTP mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer constructs an SMTPMailer from config.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{dialer: dialer, from: cfg.From}
}

// SendOTP mails the passcode with the 10-minute expiry notice.
func (m *SMTPMailer) SendOTP(email, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "Password Reset OTP")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Your OTP for password reset is: %s. This code will expire in 10 minutes.", code))
	msg.AddAlternative("text/html", fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Password Reset</h2>
  <p>You requested a password reset for your account.</p>
  <p>Your One-Time Password (OTP) is:</p>
  <h1 style="font-size: 32px; letter-spacing: 5px; background-color: #f5f5f5; padding: 10px; text-align: center;">%s</h1>
  <p>This code will expire in 10 minutes.</p>
  <p>If you didn't request this password reset, please ignore this email.</p>
</div>`, code))
	return m.dialer.DialAndSend(msg)
}

// Nop is a Mailer that drops all mail. Used in tests.
type Nop struct{}

// SendOTP implements Mailer.
func (Nop) SendOTP(string, string) error { return nil }
