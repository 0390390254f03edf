package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"permguard-lab/internal/domain/models"
	"permguard-lab/internal/domain/services"
)

var (
	permissionsJSON bool
	scoreFormat     string
)

func init() {
	scoreCmd.Flags().StringVar(&scoreFormat, "format", "json", "output format: json or table")
	permissionsCmd.Flags().BoolVar(&permissionsJSON, "json", false, "print the catalogue as JSON")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(permissionsCmd)
}

var scoreCmd = &cobra.Command{
	Use:   "score <permission>...",
	Short: "Score a list of permission identifiers",
	Long:  "Prints the risk result for the given permissions. Identifiers are matched exactly, e.g. android.permission.READ_SMS.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result := services.ScorePermissions(args)
		switch scoreFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		case "table":
			return writeScoreTable(cmd.OutOrStdout(), args, result)
		default:
			return fmt.Errorf("unsupported format %q (want json or table)", scoreFormat)
		}
	},
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List the dangerous permissions and their weights",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogue := services.DangerousPermissions()

		if permissionsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(catalogue)
		}

		tw := newTabWriter(cmd.OutOrStdout())
		fmt.Fprintln(tw, "PERMISSION\tWEIGHT\tLABEL")
		for _, p := range catalogue {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.Weight, p.Label)
		}
		fmt.Fprintf(tw, "\nscore is capped at %d; HIGH >= %d, MEDIUM >= %d\n",
			models.MaxRiskScore, models.HighRiskThreshold, models.MediumRiskThreshold)
		return tw.Flush()
	},
}
