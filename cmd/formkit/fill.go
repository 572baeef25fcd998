package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/hosts/tui"
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill a form interactively in the terminal",
	Long: `Prompts for every visible, writable field, re-asks fields that fail validation,
and prints the accepted model once submission succeeds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		attempts, _ := cmd.Flags().GetInt("max-attempts")

		def, err := loadDefinition(cmd.Context(), readSourceFlags(cmd))
		if err != nil {
			return err
		}

		inst := def.Mount(nil, form.WithLogger(logger))
		runner := tui.New(tui.WithLogger(logger), tui.WithMaxAttempts(attempts))
		model, err := runner.Run(cmd.Context(), inst)
		if err != nil {
			return err
		}

		data, err := tui.Marshal(model, tui.OutputFormat(format))
		if err != nil {
			return err
		}
		if output == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Model written to %s (%s)\n", output, tui.ContentType(tui.OutputFormat(format)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)
	fillCmd.Flags().String("format", string(tui.OutputFormatJSON), "Output format (json, form, pretty)")
	fillCmd.Flags().StringP("output", "o", "", "Write the model to a file instead of stdout")
	fillCmd.Flags().Int("max-attempts", 0, "Give up after this many blocked submissions (0 = unlimited)")
}
