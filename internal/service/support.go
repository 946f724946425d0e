package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobDispatcher hands work to the background queue. A nil dispatcher drops
// jobs, which unit tests rely on.
type JobDispatcher interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
	EnqueueDossierCompletion(ctx context.Context, dossierID uuid.UUID) error
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

const dateLayout = "2006-01-02"

// today is replaceable in tests.
var today = func() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseDate parses an optional YYYY-MM-DD value, defaulting to today.
func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return today(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, validationErr("Ngày không hợp lệ")
	}
	return t, nil
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// parseOptionalID accepts nil or an empty string as "no id".
func parseOptionalID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, validationErr("Mã định danh không hợp lệ")
	}
	return &id, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nowUTC() time.Time { return time.Now().UTC() }
