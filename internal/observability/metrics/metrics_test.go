package metrics

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("plan_id", "basic-eur"),
		attribute.String("user_id", "456"),
		attribute.String("workspace_type", "regular"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "plan_id" && attrs[1].Key != "plan_id" {
		t.Fatalf("expected plan_id to be retained")
	}
	if attrs[0].Key != "workspace_type" && attrs[1].Key != "workspace_type" {
		t.Fatalf("expected workspace_type to be retained")
	}
}

func TestClassifyRefreshJobReason(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{"nil", nil, RefreshJobReasonUnknown},
		{"deadline", context.DeadlineExceeded, RefreshJobReasonDeadlineExceeded},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, RefreshJobReasonDBLockTimeout},
		{"serialization", &pgconn.PgError{Code: "40001"}, RefreshJobReasonSerializationFailure},
		{"unique violation", &pgconn.PgError{Code: "23505"}, RefreshJobReasonUniqueViolation},
	}
	for _, tc := range cases {
		if got := ClassifyRefreshJobReason(tc.err); got != tc.reason {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.reason, got)
		}
	}
}

func TestIsRefreshErrorRetryable(t *testing.T) {
	if !IsRefreshErrorRetryable(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should be retryable")
	}
	if !IsRefreshErrorRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure should be retryable")
	}
	if IsRefreshErrorRetryable(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation should not be retryable")
	}
}
