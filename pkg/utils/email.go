package utils

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	companyName     = "NotesWriter"
	OTPEmailSubject = "NotesWriter Signup OTP Code"
)

// Mailer delivers a single HTML email. Implementations block until the provider accepts or rejects it.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

const emailHeader = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; background-color: #f6f6f6; padding: 20px;">
	<div style="max-width: 400px; margin: auto; background: #ffffff; padding: 20px; border-radius: 8px; text-align: center;">
		<h2>NotesWriter OTP</h2>
`

const emailFooter = `
		<div style="font-size: 12px; color: #888; margin-top: 15px;">
			This OTP is valid for a limited time.
		</div>
	</div>
</body>
</html>
`

const otpBoxStyle = "display: inline-block; width: 40px; height: 40px; line-height: 40px; margin: 5px; " +
	"font-size: 20px; font-weight: bold; border: 1px solid #ccc; border-radius: 6px; background-color: #f9f9f9;"

// RenderOTPEmail builds the signup email body with one box per digit.
func RenderOTPEmail(otp string) string {
	var boxes strings.Builder
	for _, digit := range otp {
		fmt.Fprintf(&boxes, `<span style="%s">%c</span>`, otpBoxStyle, digit)
	}

	return emailHeader +
		"\t\t<p>Use the OTP below to complete your signup:</p>\n" +
		"\t\t<div>" + boxes.String() + "</div>\n" +
		emailFooter
}

// SendOTPEmail renders and dispatches the signup code through m.
func SendOTPEmail(ctx context.Context, m Mailer, to, otp string) error {
	return m.Send(ctx, to, OTPEmailSubject, RenderOTPEmail(otp))
}

// ErrInvalidHeader is returned when a recipient or subject could smuggle extra headers into a message.
var ErrInvalidHeader = errors.New("invalid email header value")

// buildMessage renders RFC 5322 headers followed by an HTML body.
// to must be a single bare address; CR or LF anywhere in to or subject is rejected.
func buildMessage(from, to, subject, htmlBody string) ([]byte, error) {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return nil, fmt.Errorf("%w: line break in recipient or subject", ErrInvalidHeader)
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil || rcpt.Name != "" || rcpt.Address != to {
		return nil, fmt.Errorf("%w: recipient %q is not a plain address", ErrInvalidHeader, to)
	}

	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", companyName, from)},
		{"To", rcpt.Address},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
		{"X-Mailer", "NotesWriter-Mailer"},
	}
	if from == "" {
		headers = headers[1:]
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String()), nil
}

// SMTPMailer sends through a plain-auth SMTP relay.
type SMTPMailer struct {
	from     string
	password string
	host     string
	port     string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(from, password, host, port string) *SMTPMailer {
	return &SMTPMailer{from: from, password: password, host: host, port: port, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) configured() bool {
	return m.from != "" && m.password != "" && m.host != "" && m.port != ""
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.configured() {
		return fmt.Errorf("email configuration not set")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(m.from, to, subject, htmlBody)
	if err != nil {
		logrus.WithField("to", to).WithError(err).Warn("smtp: refusing to send email")
		return err
	}
	auth := smtp.PlainAuth("", m.from, m.password, m.host)

	if err := m.sendMail(m.host+":"+m.port, auth, m.from, []string{to}, msg); err != nil {
		logrus.WithField("to", to).WithError(err).Error("smtp: failed to send email")
		return err
	}

	logrus.WithField("to", to).Info("smtp: email sent")
	return nil
}
