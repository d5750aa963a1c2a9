package license

import (
	"testing"
	"time"
)

func TestPlanMaxDevices(t *testing.T) {
	cases := []struct {
		plan      Plan
		wantLimit int
		wantUnlim bool
	}{
		{PlanBasic, 1, false},
		{PlanProfessional, 3, false},
		{PlanEnterprise, 0, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.plan), func(t *testing.T) {
			limit, unlimited := tc.plan.MaxDevices()
			if limit != tc.wantLimit || unlimited != tc.wantUnlim {
				t.Fatalf("MaxDevices() = (%d, %v), want (%d, %v)", limit, unlimited, tc.wantLimit, tc.wantUnlim)
			}
		})
	}
}

func TestCanActivate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name    string
		lic     License
		devices int
		want    bool
	}{
		{
			name:    "pending license under capacity activates",
			lic:     License{Status: StatusPending, Plan: PlanBasic, MaxDevices: 1},
			devices: 0,
			want:    true,
		},
		{
			name:    "active license under capacity activates another device",
			lic:     License{Status: StatusActive, Plan: PlanProfessional, MaxDevices: 3},
			devices: 2,
			want:    true,
		},
		{
			name:    "at capacity rejects",
			lic:     License{Status: StatusActive, Plan: PlanBasic, MaxDevices: 1},
			devices: 1,
			want:    false,
		},
		{
			name:    "suspended rejects",
			lic:     License{Status: StatusSuspended, Plan: PlanBasic, MaxDevices: 1},
			devices: 0,
			want:    false,
		},
		{
			name:    "revoked rejects",
			lic:     License{Status: StatusRevoked, Plan: PlanBasic, MaxDevices: 1},
			devices: 0,
			want:    false,
		},
		{
			name:    "expired rejects even if pending",
			lic:     License{Status: StatusPending, Plan: PlanBasic, MaxDevices: 1, ExpiresAt: &past},
			devices: 0,
			want:    false,
		},
		{
			name:    "enterprise never hits capacity",
			lic:     License{Status: StatusActive, Plan: PlanEnterprise, MaxDevices: 0, ExpiresAt: &future},
			devices: 500,
			want:    true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.lic.CanActivate(now, tc.devices); got != tc.want {
				t.Fatalf("CanActivate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeKeyStripsAllSpaces(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"giro-abcd-efgh-jklm-npqr", "GIRO-ABCD-EFGH-JKLM-NPQR"},
		{" GIRO-ABCD-EFGH-JKLM-NPQR ", "GIRO-ABCD-EFGH-JKLM-NPQR"},
		{"GIRO- ABCD -EFGH-JKLM-NPQR", "GIRO-ABCD-EFGH-JKLM-NPQR"},
		{"g i r o - a b c d", "GIRO-ABCD"},
	}
	for _, tc := range cases {
		if got := NormalizeKey(tc.in); got != tc.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := daysRemaining(nil, now); got != 0 {
		t.Fatalf("perpetual license: daysRemaining() = %d, want 0", got)
	}

	thirtyOut := now.AddDate(0, 0, 30)
	if got := daysRemaining(&thirtyOut, now); got != 30 {
		t.Fatalf("daysRemaining() = %d, want 30", got)
	}

	past := now.AddDate(0, 0, -1)
	if got := daysRemaining(&past, now); got != 0 {
		t.Fatalf("expired license: daysRemaining() = %d, want floored at 0", got)
	}
}
