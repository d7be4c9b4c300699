package relay

import (
	"testing"
	"time"
)

func TestNextCronDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Duration
	}{
		{name: "every hour on the hour", expr: "0 * * * *", want: 30 * time.Minute},
		{name: "daily at 4am", expr: "0 4 * * *", want: 17*time.Hour + 30*time.Minute},
		{name: "every 15 minutes", expr: "*/15 * * * *", want: 15 * time.Minute},
		{name: "invalid", expr: "not a cron", want: 0},
		{name: "six fields rejected", expr: "0 0 4 * * *", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextCronDuration(tt.expr, now); got != tt.want {
				t.Errorf("nextCronDuration(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestValidateCron(t *testing.T) {
	if err := ValidateCron("0 */6 * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCron("bogus"); err == nil {
		t.Error("expected error for bogus expression")
	}
}
