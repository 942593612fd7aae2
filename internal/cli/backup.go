package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newExportCmd(rt *runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the local database to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "-" {
				return rt.app.Backup.Export(cmd.OutOrStdout())
			}
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create backup file: %w", err)
			}
			if err := rt.app.Backup.Export(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write backup file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path, - for stdout (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd(rt *runtime) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON backup into the local database",
		Long: `Import merges a backup into the local database. Rows that already exist
are kept; configurations and parental controls are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("failed to open backup file: %w", err)
				}
				defer f.Close()
				r = f
			}

			summary, err := rt.app.Backup.Import(r)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Import complete")
			fmt.Fprintf(out, "  identities:        %d\n", summary.Identities)
			fmt.Fprintf(out, "  accounts:          %d\n", summary.Accounts)
			fmt.Fprintf(out, "  profiles:          %d\n", summary.Profiles)
			fmt.Fprintf(out, "  configurations:    %d\n", summary.Configurations)
			fmt.Fprintf(out, "  parental controls: %d\n", summary.ParentalControls)
			fmt.Fprintf(out, "  statistics:        %d\n", summary.Statistics)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file path, - for stdin (required)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
