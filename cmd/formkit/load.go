package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	formkit "github.com/goliatone/go-formkit"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/openapi"
	"github.com/goliatone/go-formkit/pkg/schema"
)

const fetchTimeout = 15 * time.Second

// sourceFlags names where the form definition and its initial model come from.
type sourceFlags struct {
	Schema    string
	FormID    string
	OpenAPI   string
	Operation string
	Model     string
}

func readSourceFlags(cmd *cobra.Command) sourceFlags {
	get := func(name string) string {
		value, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(value)
	}
	return sourceFlags{
		Schema:    get("schema"),
		FormID:    get("form"),
		OpenAPI:   get("openapi"),
		Operation: get("operation"),
		Model:     get("model"),
	}
}

func loadDefinition(ctx context.Context, flags sourceFlags, opts ...formkit.Option) (*formkit.Definition, error) {
	var (
		def *formkit.Definition
		err error
	)
	switch {
	case flags.Schema != "" && flags.OpenAPI != "":
		return nil, errors.New("use either --schema or --openapi, not both")
	case flags.Schema != "":
		def, err = loadSchema(flags, opts)
	case flags.OpenAPI != "":
		def, err = loadOpenAPI(ctx, flags, opts)
	default:
		return nil, errors.New("a form source is required: pass --schema or --openapi")
	}
	if err != nil {
		return nil, err
	}

	if flags.Model != "" {
		model, err := readModel(flags.Model)
		if err != nil {
			return nil, err
		}
		def.Seed = model
	}
	return def, nil
}

func loadSchema(flags sourceFlags, opts []formkit.Option) (*formkit.Definition, error) {
	info, err := os.Stat(flags.Schema)
	if err != nil {
		return nil, fmt.Errorf("schema source: %w", err)
	}

	var forms map[string]schema.FormSpec
	if info.IsDir() {
		store, err := schema.LoadFS(os.DirFS(flags.Schema))
		if err != nil {
			return nil, err
		}
		forms = make(map[string]schema.FormSpec)
		for _, id := range store.IDs() {
			forms[id], _ = store.Form(id)
		}
	} else {
		data, err := os.ReadFile(flags.Schema)
		if err != nil {
			return nil, fmt.Errorf("schema source: %w", err)
		}
		doc, err := schema.Parse(data, flags.Schema)
		if err != nil {
			return nil, err
		}
		forms = doc.Forms
	}

	spec, err := pickForm(forms, flags.FormID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", flags.Schema, err)
	}
	return formkit.FromSchema(spec, opts...)
}

func pickForm(forms map[string]schema.FormSpec, id string) (schema.FormSpec, error) {
	if id != "" {
		spec, ok := forms[id]
		if !ok {
			return schema.FormSpec{}, fmt.Errorf("form %q not found", id)
		}
		return spec, nil
	}
	switch len(forms) {
	case 0:
		return schema.FormSpec{}, errors.New("no forms defined")
	case 1:
		for _, spec := range forms {
			return spec, nil
		}
	}
	return schema.FormSpec{}, fmt.Errorf("%d forms defined, pick one with --form", len(forms))
}

func loadOpenAPI(ctx context.Context, flags sourceFlags, opts []formkit.Option) (*formkit.Definition, error) {
	if flags.Operation == "" {
		return nil, errors.New("--operation is required with --openapi")
	}

	var src openapi.Source
	if strings.HasPrefix(flags.OpenAPI, "http://") || strings.HasPrefix(flags.OpenAPI, "https://") {
		var err error
		if src, err = openapi.SourceFromURL(flags.OpenAPI); err != nil {
			return nil, err
		}
	} else {
		src = openapi.SourceFromFile(flags.OpenAPI)
	}

	opts = append([]formkit.Option{formkit.WithLoaderOptions(openapi.WithHTTPFallback(fetchTimeout))}, opts...)
	return formkit.FromOpenAPI(ctx, src, flags.Operation, opts...)
}

func readModel(path string) (form.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	var model form.Record
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return model, nil
}
