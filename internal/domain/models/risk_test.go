package models

import (
	"testing"
	"time"
)

func TestLevelForScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLevelNone},
		{1, RiskLevelLow},
		{34, RiskLevelLow},
		{35, RiskLevelMedium},
		{69, RiskLevelMedium},
		{70, RiskLevelHigh},
		{100, RiskLevelHigh},
	}
	for _, tt := range tests {
		if got := LevelForScore(tt.score); got != tt.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRiskLevelRank(t *testing.T) {
	if !(RiskLevelNone.Rank() < RiskLevelLow.Rank() &&
		RiskLevelLow.Rank() < RiskLevelMedium.Rank() &&
		RiskLevelMedium.Rank() < RiskLevelHigh.Rank()) {
		t.Error("tiers are not ordered NONE < LOW < MEDIUM < HIGH")
	}
	if RiskLevel("CRITICAL").IsValid() {
		t.Error("unknown level reported as valid")
	}
}

func TestNewAppRecordFallbacks(t *testing.T) {
	rec := NewAppRecord(InstalledApp{PackageName: "com.example.notes"}, RiskResult{Level: RiskLevelNone})
	if rec.AppName != "com.example.notes" {
		t.Errorf("AppName = %q, want package name fallback", rec.AppName)
	}
	if rec.Permissions == nil || rec.DangerousPermissions == nil {
		t.Error("nil slices should be normalized to empty")
	}
}

func TestNewAppRecordDoesNotAlias(t *testing.T) {
	perms := []string{"android.permission.CAMERA"}
	rec := NewAppRecord(InstalledApp{PackageName: "p", Permissions: perms}, RiskResult{})
	perms[0] = "mutated"
	if rec.Permissions[0] != "android.permission.CAMERA" {
		t.Error("record aliases caller's permission slice")
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 10, 17, 9, 30, 5, 123456789, time.FixedZone("CEST", 2*3600))
	if got := FormatTimestamp(ts); got != "2026-10-17T07:30:05.123Z" {
		t.Errorf("FormatTimestamp = %q", got)
	}
	if got := FormatTimestamp(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)); got != "2026-01-02T03:04:05.000Z" {
		t.Errorf("FormatTimestamp zero millis = %q", got)
	}
}

func TestDeviceInfoClone(t *testing.T) {
	var nilInfo DeviceInfo
	if c := nilInfo.Clone(); c == nil || len(c) != 0 {
		t.Errorf("nil clone = %#v, want empty record", c)
	}
	info := DeviceInfo{"model": "Pixel 7"}
	c := info.Clone()
	c["model"] = "other"
	if info["model"] != "Pixel 7" {
		t.Error("Clone aliases the source map")
	}
}
