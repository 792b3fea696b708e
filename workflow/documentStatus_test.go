package workflow

import (
	"testing"
	"time"

	"github.com/arthosutra/accubooks_backend/models"
	"github.com/shopspring/decimal"
)

func TestSettledStatus(t *testing.T) {
	past := time.Now().UTC().Add(-24 * time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)

	cases := []struct {
		name    string
		applied string
		total   string
		dueDate *time.Time
		want    models.DocumentStatus
	}{
		{"fully covered", "500", "500", &future, models.DocumentStatusPaid},
		{"overpaid still paid", "600", "500", &past, models.DocumentStatusPaid},
		{"partial before due", "100", "500", &future, models.DocumentStatusPending},
		{"partial past due", "100", "500", &past, models.DocumentStatusOverdue},
		{"unpaid no due date", "0", "500", nil, models.DocumentStatusPending},
		{"zero total never paid", "0", "0", &future, models.DocumentStatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := settledStatus(dec(tc.applied), dec(tc.total), tc.dueDate)
			if got != tc.want {
				t.Errorf("settledStatus(%s, %s) = %s, want %s", tc.applied, tc.total, got, tc.want)
			}
		})
	}
}

func TestSettledStatusExactBoundary(t *testing.T) {
	// 499.9999 vs 500 must stay unpaid; decimal compare, no float drift.
	past := time.Now().UTC().Add(-time.Hour)
	if got := settledStatus(decimal.RequireFromString("499.9999"), dec("500"), &past); got != models.DocumentStatusOverdue {
		t.Errorf("expected OVERDUE just below the total, got %s", got)
	}
	if got := settledStatus(decimal.RequireFromString("500.0000"), dec("500"), &past); got != models.DocumentStatusPaid {
		t.Errorf("expected PAID at the exact total, got %s", got)
	}
}
