package htmlcontrols

import (
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formkit/pkg/controls"
	"github.com/goliatone/go-formkit/pkg/form"
)

// Option configures a Kit.
type Option func(*kitConfig)

type kitConfig struct {
	engineOptions []EngineOption
	engine        *Engine
	theme         *theme.RendererConfig
	selector      theme.ThemeSelector
	themeName     string
	themeVariant  string
	config        map[string]any
	stylesheets   []string
}

// WithEngine reuses an existing template engine.
func WithEngine(engine *Engine) Option {
	return func(cfg *kitConfig) {
		cfg.engine = engine
	}
}

// WithEngineOptions configures the engine the Kit creates.
func WithEngineOptions(opts ...EngineOption) Option {
	return func(cfg *kitConfig) {
		cfg.engineOptions = append(cfg.engineOptions, opts...)
	}
}

// WithTheme uses a fully resolved theme configuration.
func WithTheme(rendererTheme *theme.RendererConfig) Option {
	return func(cfg *kitConfig) {
		cfg.theme = rendererTheme
	}
}

// WithThemeSelector resolves name and variant through selector when the Kit is
// created.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(cfg *kitConfig) {
		cfg.selector = selector
		cfg.themeName = strings.TrimSpace(name)
		cfg.themeVariant = strings.TrimSpace(variant)
	}
}

// WithConfig passes arbitrary values to every template under "config".
func WithConfig(config map[string]any) Option {
	return func(cfg *kitConfig) {
		cfg.config = config
	}
}

// WithStylesheets attaches hrefs to every built-in control, so hosts link them
// through the registry's asset list.
func WithStylesheets(hrefs ...string) Option {
	return func(cfg *kitConfig) {
		for _, href := range hrefs {
			if href = strings.TrimSpace(href); href != "" {
				cfg.stylesheets = append(cfg.stylesheets, href)
			}
		}
	}
}

// Kit bundles the HTML controls with the engine and theme they render with.
type Kit struct {
	engine   *Engine
	registry *controls.Registry
	theme    *theme.RendererConfig
	config   map[string]any
}

// New builds a Kit. Without options it renders the embedded templates with no
// theme.
func New(opts ...Option) (*Kit, error) {
	cfg := &kitConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	engine := cfg.engine
	if engine == nil {
		var err error
		engine, err = NewEngine(cfg.engineOptions...)
		if err != nil {
			return nil, err
		}
	}

	rendererTheme := cfg.theme
	if rendererTheme == nil && cfg.selector != nil {
		selection, err := cfg.selector.Select(cfg.themeName, cfg.themeVariant)
		if err != nil {
			return nil, fmt.Errorf("htmlcontrols: select theme %q: %w", cfg.themeName, err)
		}
		rendererTheme = ThemeFromSelection(selection)
	}

	registry := NewRegistry()
	if len(cfg.stylesheets) > 0 {
		for _, name := range registry.Names() {
			descriptor, err := registry.Lookup(name)
			if err != nil {
				return nil, err
			}
			descriptor.Stylesheets = append(descriptor.Stylesheets, cfg.stylesheets...)
			if err := registry.Register(name, descriptor); err != nil {
				return nil, err
			}
		}
	}

	return &Kit{
		engine:   engine,
		registry: registry,
		theme:    rendererTheme,
		config:   cfg.config,
	}, nil
}

// MustNew mirrors New but panics on error.
func MustNew(opts ...Option) *Kit {
	kit, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return kit
}

// Engine returns the template engine.
func (k *Kit) Engine() *Engine {
	return k.engine
}

// Registry returns a copy of the built-in control registry.
func (k *Kit) Registry() *controls.Registry {
	return k.registry.Clone()
}

// Theme returns the resolved theme, or nil.
func (k *Kit) Theme() *theme.RendererConfig {
	return k.theme
}

// Data is the ComponentData controls render with.
func (k *Kit) Data() controls.ComponentData {
	return controls.ComponentData{
		Template: k.engine,
		Theme:    k.theme,
		Config:   k.config,
	}
}

// Builder starts a form builder preloaded with the HTML controls and the
// themed section header.
func (k *Kit) Builder() *form.Builder {
	return form.WithRegistry(k.registry, SectionHeader)
}

// MountOptions wires the Kit's templates and submit button into an instance.
func (k *Kit) MountOptions() []form.MountOption {
	return []form.MountOption{
		form.WithComponentData(k.Data()),
		form.WithSubmitButton(SubmitButton),
	}
}

// ThemeFromSelection flattens a selected theme manifest and variant into a
// renderer configuration. Variant tokens, templates and assets override the
// base manifest; partials not named by either fall back to DefaultPartials.
func ThemeFromSelection(selection *theme.Selection) *theme.RendererConfig {
	if selection == nil {
		return nil
	}
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: DefaultPartials(),
		Tokens:   map[string]string{},
	}

	prefix := ""
	files := map[string]string{}
	if manifest := selection.Manifest; manifest != nil {
		mergeInto(cfg.Tokens, manifest.Tokens)
		mergeInto(cfg.Partials, manifest.Templates)
		mergeInto(files, manifest.Assets.Files)
		prefix = manifest.Assets.Prefix
		if variant, ok := manifest.Variants[selection.Variant]; ok {
			mergeInto(cfg.Tokens, variant.Tokens)
			mergeInto(cfg.Partials, variant.Templates)
			mergeInto(files, variant.Assets.Files)
			if variant.Assets.Prefix != "" {
				prefix = variant.Assets.Prefix
			}
		}
	}

	cfg.CSSVars = make(map[string]string, len(cfg.Tokens))
	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+strings.TrimPrefix(key, "--")] = value
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
			return file
		}
		return strings.TrimSuffix(prefix, "/") + "/" + file
	}
	return cfg
}

func mergeInto(dst, src map[string]string) {
	for key, value := range src {
		if strings.TrimSpace(value) == "" {
			continue
		}
		dst[key] = value
	}
}
