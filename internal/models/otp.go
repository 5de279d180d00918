package models

import (
	"encoding/json"
	"time"
)

// CodeRequestStatus is the outcome of asking for a signup code.
type CodeRequestStatus string

const (
	CodeRequestIssued  CodeRequestStatus = "ok"
	CodeRequestPending CodeRequestStatus = "exists"
)

// CodeRequest describes what RequestCode did for an email.
type CodeRequest struct {
	Email  string
	Status CodeRequestStatus
	// TimeLeft is the remaining lifetime of the outstanding code. Only set when Status is CodeRequestPending.
	TimeLeft time.Duration
}

// OTPSent reports whether this request dispatched a fresh code.
func (r *CodeRequest) OTPSent() bool {
	return r.Status == CodeRequestIssued
}

// Verification statuses returned to clients in the "status" field.
const (
	VerifyStatusVerified        = "verified"
	VerifyStatusNotFound        = "not_found"
	VerifyStatusInvalid         = "invalid"
	VerifyStatusTooManyAttempts = "too_many_attempts"
	VerifyStatusDBError         = "db_error"
)

// CachedOutput is a JSON document another component parked in the shared store.
type CachedOutput struct {
	Key  string
	TTL  time.Duration
	Data json.RawMessage
}
