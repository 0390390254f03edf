package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// writeReportTable prints one row per app with its flagged permissions by label
func writeReportTable(w io.Writer, report *models.Report) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "APP\tPACKAGE\tSCORE\tLEVEL\tDANGEROUS PERMISSIONS")
	for _, app := range report.Apps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			app.AppName, app.PackageName, app.RiskScore, app.RiskLevel, labels(app.DangerousPermissions))
	}
	s := report.Summary
	fmt.Fprintf(tw, "\n%d apps: %d high, %d medium, %d low (generated %s)\n",
		s.TotalApps, s.HighRiskApps, s.MediumRiskApps, s.LowRiskApps, report.GeneratedAt)
	return tw.Flush()
}

// writeScoreTable lists every requested permission with its label and weight
func writeScoreTable(w io.Writer, permissions []string, result models.RiskResult) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "PERMISSION\tLABEL\tWEIGHT")
	for _, p := range permissions {
		weight, _ := services.PermissionWeight(p)
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p, services.PermissionLabel(p), weight)
	}
	fmt.Fprintf(tw, "\nscore %d (%s)\n", result.Score, result.Level)
	return tw.Flush()
}

func labels(permissions []string) string {
	if len(permissions) == 0 {
		return "-"
	}
	out := make([]string, len(permissions))
	for i, p := range permissions {
		out[i] = services.PermissionLabel(p)
	}
	return strings.Join(out, ", ")
}
