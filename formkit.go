// Package formkit is the quick-start entry point: it builds forms from
// declarative definitions or OpenAPI operations with the default HTML controls.
// The building blocks live under pkg/.
package formkit

import (
	"bytes"
	"context"
	"fmt"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formkit/pkg/controls/htmlcontrols"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/openapi"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/schema"
)

// Option configures how definitions are built.
type Option func(*config)

type config struct {
	kit             *htmlcontrols.Kit
	kitOptions      []htmlcontrols.Option
	loaderOptions   []openapi.LoaderOption
	scaffoldOptions []openapi.Option
	buildOptions    []schema.BuildOption
}

// WithKit reuses a configured control kit. Kit options are then ignored.
func WithKit(kit *htmlcontrols.Kit) Option {
	return func(c *config) {
		c.kit = kit
	}
}

// WithKitOptions configures the kit created for each definition.
func WithKitOptions(opts ...htmlcontrols.Option) Option {
	return func(c *config) {
		c.kitOptions = append(c.kitOptions, opts...)
	}
}

// WithThemeSelector resolves a go-theme selection for the created kit.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return WithKitOptions(htmlcontrols.WithThemeSelector(selector, name, variant))
}

// WithLoaderOptions configures the OpenAPI document loader.
func WithLoaderOptions(opts ...openapi.LoaderOption) Option {
	return func(c *config) {
		c.loaderOptions = append(c.loaderOptions, opts...)
	}
}

// WithScaffoldOptions configures how OpenAPI operations map to sections.
func WithScaffoldOptions(opts ...openapi.Option) Option {
	return func(c *config) {
		c.scaffoldOptions = append(c.scaffoldOptions, opts...)
	}
}

// WithBuildOptions configures how declarative specs become sections.
func WithBuildOptions(opts ...schema.BuildOption) Option {
	return func(c *config) {
		c.buildOptions = append(c.buildOptions, opts...)
	}
}

func newConfig(opts []Option) (config, error) {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.kit == nil {
		kit, err := htmlcontrols.New(cfg.kitOptions...)
		if err != nil {
			return config{}, err
		}
		cfg.kit = kit
	}
	return cfg, nil
}

// Definition is a created form plus what its mounts need.
type Definition struct {
	Form  *form.Form
	Title string
	// Action and Method are the OpenAPI operation path and verb, when known.
	Action string
	Method string
	// Seed is the model used when Mount receives nil, e.g. OpenAPI defaults.
	Seed         form.Record
	MountOptions []form.MountOption
}

// Mount creates an instance with the definition's mount options followed by
// opts. A nil model mounts the seed.
func (d *Definition) Mount(model form.Record, opts ...form.MountOption) *form.Instance {
	if model == nil {
		model = d.Seed
	}
	all := append(append([]form.MountOption(nil), d.MountOptions...), opts...)
	return d.Form.Mount(model, all...)
}

// FromSchema creates the form declared by spec.
func FromSchema(spec schema.FormSpec, opts ...Option) (*Definition, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	built, err := spec.Build(cfg.kit.Builder(), cfg.buildOptions...)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Form:         built,
		Title:        spec.Title,
		MountOptions: append(cfg.kit.MountOptions(), spec.MountOptions()...),
	}, nil
}

// FromOpenAPI loads the document behind src and creates a form for the request
// body of operationID. Schema defaults become the seed.
func FromOpenAPI(ctx context.Context, src openapi.Source, operationID string, opts ...Option) (*Definition, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	data, err := openapi.NewLoader(cfg.loaderOptions...).Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("formkit: load %s: %w", src.Location(), err)
	}
	scaffold, err := openapi.Build(ctx, data, operationID, cfg.scaffoldOptions...)
	if err != nil {
		return nil, err
	}
	built, err := cfg.kit.Builder().CreateForm(scaffold.Sections...)
	if err != nil {
		return nil, fmt.Errorf("formkit: operation %q: %w", operationID, err)
	}
	return &Definition{
		Form:         built,
		Title:        scaffold.Summary,
		Action:       scaffold.Path,
		Method:       scaffold.Method,
		Seed:         scaffold.Defaults,
		MountOptions: cfg.kit.MountOptions(),
	}, nil
}

// GenerateHTML renders the form for operationID seeded with the schema
// defaults. The form targets the operation path and verb.
func GenerateHTML(ctx context.Context, src openapi.Source, operationID string, opts ...Option) ([]byte, error) {
	def, err := FromOpenAPI(ctx, src, operationID, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := def.Mount(nil).Render(ctx, &buf, render.Options{Action: def.Action, Method: def.Method}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
