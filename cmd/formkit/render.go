package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	formkit "github.com/goliatone/go-formkit"
	"github.com/goliatone/go-formkit/pkg/controls/htmlcontrols"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a form as HTML",
	Long: `Mounts the form with the initial model and writes its HTML to stdout. An error
payload (field name to messages) can be applied first to preview server-side errors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		stylesheets, _ := cmd.Flags().GetStringSlice("stylesheet")
		def, err := loadDefinition(cmd.Context(), readSourceFlags(cmd),
			formkit.WithKitOptions(htmlcontrols.WithStylesheets(stylesheets...)))
		if err != nil {
			return err
		}

		inst := def.Mount(nil, form.WithLogger(logger))

		if path, _ := cmd.Flags().GetString("errors"); path != "" {
			payload, err := readErrors(path)
			if err != nil {
				return err
			}
			for _, message := range inst.ApplyErrors(payload) {
				logger.Warn("error payload entry matched no field", "message", message)
			}
		}

		action, _ := cmd.Flags().GetString("action")
		method, _ := cmd.Flags().GetString("method")
		if !cmd.Flags().Changed("action") && def.Action != "" {
			action = def.Action
		}
		if !cmd.Flags().Changed("method") && def.Method != "" {
			method = def.Method
		}
		page, _ := cmd.Flags().GetBool("page")

		var buf bytes.Buffer
		if err := inst.Render(cmd.Context(), &buf, render.Options{Action: action, Method: method}); err != nil {
			return err
		}
		if page {
			return writeDocument(cmd.OutOrStdout(), def, inst, buf.Bytes())
		}
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().String("errors", "", "JSON file with an error payload to apply before rendering")
	renderCmd.Flags().String("action", "", "Form action attribute")
	renderCmd.Flags().String("method", "POST", "Form method")
	renderCmd.Flags().Bool("page", false, "Wrap the form in a standalone HTML document")
	renderCmd.Flags().StringSlice("stylesheet", nil, "Stylesheet href to link from the page (repeatable)")
}

func readErrors(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("errors: %w", err)
	}
	var payload map[string][]string
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("errors %s: %w", path, err)
	}
	return payload, nil
}

func writeDocument(w io.Writer, def *formkit.Definition, inst *form.Instance, markup []byte) error {
	styles, scripts := inst.Form().Registry().Assets(inst.Form().Tags())
	var page bytes.Buffer
	render.WritePage(&page, render.Page{
		Title:       def.Title,
		Stylesheets: styles,
		Scripts:     scripts,
		Body:        markup,
	})
	page.WriteString("\n")
	_, err := w.Write(page.Bytes())
	return err
}
