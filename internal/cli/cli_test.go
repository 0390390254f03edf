package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/streaming"
)

// run executes the root command with fresh flag state and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	configPath, logLevel = "", "error"
	scanInventory, scanSample, scanOut, scanFormat, scanSend = "", false, "", "json", ""
	permissionsJSON, scoreFormat = false, "json"
	for _, cmd := range []*cobra.Command{scanCmd, scoreCmd, permissionsCmd} {
		cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestScoreCommand(t *testing.T) {
	out, err := run(t, "score", "android.permission.READ_SMS", "android.permission.CAMERA", "android.permission.INTERNET")
	if err != nil {
		t.Fatalf("score: %v", err)
	}

	var result models.RiskResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Score != 25 || result.Level != models.RiskLevelLow {
		t.Errorf("result = %+v", result)
	}
}

func TestScoreCommandNoArgs(t *testing.T) {
	out, err := run(t, "score")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, `"level": "NONE"`) || !strings.Contains(out, `"dangerousPermissions": []`) {
		t.Errorf("output = %s", out)
	}
}

func TestScoreCommandTableLabelsPermissions(t *testing.T) {
	out, err := run(t, "score", "--format", "table",
		"android.permission.READ_SMS", "android.permission.INTERNET", "com.vendor.push.RECEIVE")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for _, want := range []string{"SMS (Read)", "score 15 (LOW)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	// unknown identifiers fall back to their last dotted segment
	rows := map[string][]string{}
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			rows[fields[0]] = fields
		}
	}
	for perm, label := range map[string]string{
		"android.permission.INTERNET": "INTERNET",
		"com.vendor.push.RECEIVE":     "RECEIVE",
	} {
		if got := rows[perm]; len(got) != 3 || got[1] != label || got[2] != "0" {
			t.Errorf("row for %s = %v, want label %s weight 0", perm, got, label)
		}
	}

	if _, err := run(t, "score", "--format", "csv"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestPermissionsCommand(t *testing.T) {
	out, err := run(t, "permissions")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	for _, want := range []string{"PERMISSION", "android.permission.READ_SMS", "SMS (Read)", "capped at 100"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q", want)
		}
	}

	out, err = run(t, "permissions", "--json")
	if err != nil {
		t.Fatalf("permissions --json: %v", err)
	}
	var catalogue []models.DangerousPermission
	if err := json.Unmarshal([]byte(out), &catalogue); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(catalogue) != 17 {
		t.Errorf("catalogue has %d entries, want 17", len(catalogue))
	}
}

func TestScanSample(t *testing.T) {
	out, err := run(t, "scan", "--sample")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	var report models.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not a report: %v", err)
	}
	want := models.Summary{TotalApps: 3, MediumRiskApps: 2}
	if report.Summary != want {
		t.Errorf("summary = %+v, want %+v", report.Summary, want)
	}
	if report.DeviceInfo["model"] != "Preview Device" {
		t.Errorf("deviceInfo = %v", report.DeviceInfo)
	}
}

func TestScanInventoryFileToYAML(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "inventory.yaml")
	content := `apps:
  - packageName: com.example.sms
    permissions:
      - android.permission.READ_SMS
      - android.permission.SEND_SMS
      - android.permission.RECEIVE_SMS
      - android.permission.READ_CALL_LOG
      - android.permission.ACCESS_FINE_LOCATION
deviceInfo:
  brand: google
`
	if err := os.WriteFile(inv, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "report.yaml")

	stdout, err := run(t, "scan", "--inventory", inv, "--format", "yaml", "--out", outPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty when --out is set", stdout)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"reportVersion: 1.0.0", "riskLevel: HIGH", "highRiskApps: 1", "appName: com.example.sms"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report lacks %q:\n%s", want, data)
		}
	}
}

func TestScanTableShowsLabels(t *testing.T) {
	out, err := run(t, "scan", "--sample", "--format", "table")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for _, want := range []string{
		"Example Messenger",
		"SMS (Read), SMS (Send), Contacts (Read)",
		"Camera, Microphone",
		"3 apps: 0 high, 2 medium, 0 low",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestScanSend(t *testing.T) {
	var calls atomic.Int32
	var received models.Report
	lab := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer lab.Close()

	if _, err := run(t, "scan", "--sample", "--send", lab.URL); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("endpoint called %d times", calls.Load())
	}
	if received.Summary.TotalApps != 3 {
		t.Errorf("endpoint received %+v", received.Summary)
	}
}

func TestScanSendFailureIsAnError(t *testing.T) {
	lab := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer lab.Close()

	if _, err := run(t, "scan", "--sample", "--send", lab.URL); err == nil {
		t.Error("expected error when the endpoint rejects the report")
	}
}

func TestScanArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"apps": [`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"scan"}},
		{"both sources", []string{"scan", "--sample", "--inventory", bad}},
		{"malformed inventory", []string{"scan", "--inventory", bad}},
		{"missing inventory", []string{"scan", "--inventory", filepath.Join(dir, "nope.json")}},
		{"unsupported extension", []string{"scan", "--inventory", filepath.Join(dir, "apps.txt")}},
		{"bad format", []string{"scan", "--sample", "--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWatchRequiresNATS(t *testing.T) {
	t.Setenv("PERMGUARD_NATS_ENABLED", "false")
	_, err := run(t, "watch")
	if err == nil || !strings.Contains(err.Error(), "NATS is disabled") {
		t.Errorf("err = %v", err)
	}
}

func TestWatchSubscription(t *testing.T) {
	sub, err := watchSubscription(" medium ", []string{"REPORT_GENERATED"})
	if err != nil {
		t.Fatal(err)
	}
	if sub.MinRiskLevel != models.RiskLevelMedium {
		t.Errorf("MinRiskLevel = %q", sub.MinRiskLevel)
	}
	if len(sub.Types) != 1 || sub.Types[0] != streaming.EventTypeReportGenerated {
		t.Errorf("Types = %v", sub.Types)
	}

	if _, err := watchSubscription("severe", nil); err == nil {
		t.Error("expected error for unknown tier")
	}
	if _, err := watchSubscription("", []string{"report_deleted"}); err == nil {
		t.Error("expected error for unknown event type")
	}

	sub, err = watchSubscription("", nil)
	if err != nil || sub.MinRiskLevel != "" || sub.Types != nil {
		t.Errorf("empty subscription = %+v, %v", sub, err)
	}
}
