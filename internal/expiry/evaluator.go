// Package expiry computes days remaining against the rotation deadline and
// classifies the result. Read-only over the ledger; never mutates anything.
package expiry

import (
	"fmt"
	"time"

	"github.com/systmms/keyops/internal/ledger"
)

// Status classifies how urgent rotation is.
type Status string

const (
	// StatusExpired means the rotation deadline has passed.
	StatusExpired Status = "expired"
	// StatusCritical means rotation is due within 7 days.
	StatusCritical Status = "critical"
	// StatusNotice means rotation is due within 30 days.
	StatusNotice Status = "notice"
	// StatusCurrent means no action is needed.
	StatusCurrent Status = "current"
)

// Classify maps days remaining onto a status. Boundaries are inclusive on
// the lower edge of each band.
func Classify(daysRemaining int) Status {
	switch {
	case daysRemaining < 0:
		return StatusExpired
	case daysRemaining < 7:
		return StatusCritical
	case daysRemaining < 30:
		return StatusNotice
	default:
		return StatusCurrent
	}
}

// DaysRemaining is floor((deadline - now) / 86400s). One second past the
// deadline already counts as -1.
func DaysRemaining(deadline, now time.Time) int {
	secs := int64(deadline.Sub(now) / time.Second)
	days := secs / 86400
	if secs < 0 && secs%86400 != 0 {
		days--
	}
	return int(days)
}

// Report is the evaluation of the ledger's global rotation deadline.
type Report struct {
	RotateBy      time.Time `json:"rotate_by"`
	DaysRemaining int       `json:"days_remaining"`
	Status        Status    `json:"status"`
}

// CredentialReport is the per-credential view used by the status command.
type CredentialReport struct {
	Name          string    `json:"name"`
	Service       string    `json:"service"`
	Created       time.Time `json:"created"`
	Expires       time.Time `json:"expires"`
	DaysRemaining int       `json:"days_remaining"`
	Status        Status    `json:"status"`
}

// Evaluate computes the global deadline report from a loaded ledger document.
func Evaluate(doc *ledger.Document, now time.Time) (Report, error) {
	rotateBy, err := ledger.ParseTime(doc.RotateBy)
	if err != nil {
		return Report{}, fmt.Errorf("ledger rotate_by: %w", err)
	}

	days := DaysRemaining(rotateBy, now)
	return Report{
		RotateBy:      rotateBy,
		DaysRemaining: days,
		Status:        Classify(days),
	}, nil
}

// EvaluateCredentials computes per-credential reports in the given name
// order. Names missing from the ledger are skipped; the status command
// reports those separately as uninitialized.
func EvaluateCredentials(doc *ledger.Document, order []string, now time.Time) ([]CredentialReport, error) {
	reports := make([]CredentialReport, 0, len(order))
	for _, name := range order {
		entry, ok := doc.Secrets[name]
		if !ok {
			continue
		}

		created, err := ledger.ParseTime(entry.Created)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s: %w", name, err)
		}
		expires, err := ledger.ParseTime(entry.Expires)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s: %w", name, err)
		}

		days := DaysRemaining(expires, now)
		reports = append(reports, CredentialReport{
			Name:          name,
			Service:       entry.Service,
			Created:       created,
			Expires:       expires,
			DaysRemaining: days,
			Status:        Classify(days),
		})
	}
	return reports, nil
}
