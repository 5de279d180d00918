package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/noteswriter/noteswriter-backend/internal/logger"
	"github.com/noteswriter/noteswriter-backend/internal/models"
	"github.com/noteswriter/noteswriter-backend/pkg/utils"
)

var (
	ErrEmailRequired        = errors.New("email is required")
	ErrVerifyFieldsRequired = errors.New("email, otp and password are required")
	ErrOTPNotFound          = errors.New("OTP does not exist or has expired")
	ErrOTPMismatch          = errors.New("invalid OTP")
	ErrTooManyAttempts      = errors.New("too many invalid attempts, request a new OTP")
	ErrDispatchFailed       = errors.New("failed to send email")
	ErrRegistrationFailed   = errors.New("OTP verified but failed to create user")
	ErrStore                = errors.New("otp store failure")
	ErrCachedOutputNotFound = errors.New("no cached output")

	errCodeExpired = errors.New("code expired while being read")
)

func otpKey(email string) string          { return "otp:" + email }
func attemptsKey(email string) string     { return "otp_attempts:" + email }
func CachedOutputKey(email string) string { return "model_output:" + email }

// OTPManager runs the signup code lifecycle for one email at a time:
// Absent -> RequestCode -> Pending -> matching VerifyAndRegister -> Absent.
// Pending also returns to Absent when the store expires the code or when
// maxAttempts wrong guesses have been made.
type OTPManager struct {
	store       TTLStore
	mailer      utils.Mailer
	users       UserStore
	maxAttempts int
	generate    func() (string, error)
}

// NewOTPManager wires the manager. maxAttempts <= 0 disables the wrong-guess cap.
func NewOTPManager(store TTLStore, mailer utils.Mailer, users UserStore, maxAttempts int) *OTPManager {
	return &OTPManager{
		store:       store,
		mailer:      mailer,
		users:       users,
		maxAttempts: maxAttempts,
		generate:    utils.GenerateOTP,
	}
}

// RequestCode issues a code for email unless one is still outstanding.
// When dispatch fails the stored code is kept, so a retry reports the pending code.
func (m *OTPManager) RequestCode(ctx context.Context, email string) (*models.CodeRequest, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}

	// A code that expires between the existence check and the TTL read is no
	// longer pending, so the request starts over and issues a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		req, err := m.requestOnce(ctx, email)
		if errors.Is(err, errCodeExpired) {
			continue
		}
		return req, err
	}
	return nil, fmt.Errorf("%w: code kept expiring while being read", ErrStore)
}

func (m *OTPManager) requestOnce(ctx context.Context, email string) (*models.CodeRequest, error) {
	key := otpKey(email)
	_, err := m.store.Get(ctx, key)
	if err == nil {
		return m.pending(ctx, email)
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	code, err := m.generate()
	if err != nil {
		return nil, err
	}

	created, err := m.store.SetNX(ctx, key, code, utils.OTPExpiration)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if !created {
		// A concurrent request for the same email won the write.
		return m.pending(ctx, email)
	}

	if err := utils.SendOTPEmail(ctx, m.mailer, email, code); err != nil {
		logger.Log.WithField("email", email).WithError(err).Error("otp: dispatch failed, code left in store")
		return nil, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	logger.Log.WithField("email", email).Info("otp: code issued")
	return &models.CodeRequest{Email: email, Status: models.CodeRequestIssued}, nil
}

func (m *OTPManager) pending(ctx context.Context, email string) (*models.CodeRequest, error) {
	ttl, err := m.store.TTL(ctx, otpKey(email))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, errCodeExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	switch {
	case ttl == NoExpiry:
		ttl = 0
	case ttl < time.Second:
		// Still live; never report a pending code as having no time left.
		ttl = time.Second
	}
	return &models.CodeRequest{Email: email, Status: models.CodeRequestPending, TimeLeft: ttl}, nil
}

// VerifyAndRegister consumes a matching code and creates the account.
// A matching code is deleted before the insert, so an insert failure
// (ErrRegistrationFailed) cannot be retried with the same code.
// A wrong code leaves the record in place until the attempt cap is hit.
func (m *OTPManager) VerifyAndRegister(ctx context.Context, email, code, passwordHash string) error {
	if email == "" || code == "" || passwordHash == "" {
		return ErrVerifyFieldsRequired
	}

	key := otpKey(email)
	stored, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	if !utils.OTPEqual(code, stored) {
		return m.recordMismatch(ctx, email)
	}

	if err := m.store.Delete(ctx, key, attemptsKey(email)); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	if err := m.users.Create(ctx, &models.User{Email: email, Password: passwordHash}); err != nil {
		logger.Log.WithField("email", email).WithError(err).Error("otp: code consumed but user insert failed")
		return fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	logger.Log.WithField("email", email).Info("otp: verified, user created")
	return nil
}

func (m *OTPManager) recordMismatch(ctx context.Context, email string) error {
	if m.maxAttempts <= 0 {
		return ErrOTPMismatch
	}

	log := logger.Log.WithField("email", email)
	akey := attemptsKey(email)

	n, err := m.store.Incr(ctx, akey)
	if err != nil {
		log.WithError(err).Warn("otp: failed to count invalid attempt")
		return ErrOTPMismatch
	}
	if n == 1 {
		// The counter dies with the code it guards.
		ttl, err := m.store.TTL(ctx, otpKey(email))
		if err != nil || ttl <= 0 {
			ttl = utils.OTPExpiration
		}
		if err := m.store.Expire(ctx, akey, ttl); err != nil {
			log.WithError(err).Warn("otp: failed to set attempt counter expiry")
		}
	}

	if n < int64(m.maxAttempts) {
		return ErrOTPMismatch
	}

	if err := m.store.Delete(ctx, otpKey(email), akey); err != nil {
		log.WithError(err).Error("otp: failed to revoke code after too many attempts")
	}
	log.WithFields(logrus.Fields{"attempts": n}).Warn("otp: code revoked after too many invalid attempts")
	return ErrTooManyAttempts
}

// PeekCachedOutput reads the JSON model output cached for email without touching it.
func (m *OTPManager) PeekCachedOutput(ctx context.Context, email string) (*models.CachedOutput, error) {
	key := CachedOutputKey(email)

	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrCachedOutputNotFound
	}
	if err != nil {
		return nil, err
	}

	ttl, err := m.store.TTL(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrCachedOutputNotFound
	}
	if err != nil {
		return nil, err
	}

	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("cached output at %s is not valid JSON", key)
	}

	return &models.CachedOutput{Key: key, TTL: ttl, Data: json.RawMessage(raw)}, nil
}

// Seconds renders a remaining lifetime the way clients expect it: whole seconds, -1 for no expiry.
func Seconds(d time.Duration) int64 {
	if d == NoExpiry {
		return -1
	}
	return int64(d.Round(time.Second) / time.Second)
}
