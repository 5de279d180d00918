package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailCredentials are the OAuth values of the account that sends mail.
// Expiry is the access token expiry as written by Google's tooling.
type GmailCredentials struct {
	Token        string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Expiry       string
}

// GmailMailer sends as the authorised account ("me") through the Gmail API.
type GmailMailer struct {
	srv *gmail.Service
}

// NewGmailMailer builds a Gmail client whose access token is refreshed from the stored refresh token.
// ctx must outlive the mailer; it backs the token source.
func NewGmailMailer(ctx context.Context, cfg GmailCredentials) (*GmailMailer, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURI},
		Scopes:       []string{gmail.GmailSendScope},
	}

	token := &oauth2.Token{
		AccessToken:  cfg.Token,
		RefreshToken: cfg.RefreshToken,
		Expiry:       parseTokenExpiry(cfg.Expiry),
	}

	srv, err := gmail.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailMailer{srv: srv}, nil
}

// parseTokenExpiry accepts RFC 3339 and the zone-less form written by Google's Python tooling.
// Anything missing or unreadable is treated as already expired so the first send refreshes.
func parseTokenExpiry(raw string) time.Time {
	expired := time.Unix(0, 0)
	if raw == "" {
		return expired
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	logrus.WithField("expiry", raw).Warn("gmail: unreadable token expiry, forcing refresh")
	return expired
}

func (m *GmailMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := buildMessage("", to, subject, htmlBody)
	if err != nil {
		logrus.WithField("to", to).WithError(err).Warn("gmail: refusing to send email")
		return err
	}
	raw := base64.URLEncoding.EncodeToString(msg)

	sent, err := m.srv.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		logrus.WithField("to", to).WithError(err).Error("gmail: failed to send email")
		return fmt.Errorf("gmail send: %w", err)
	}

	logrus.WithFields(logrus.Fields{"to": to, "message_id": sent.Id}).Info("gmail: email sent")
	return nil
}
