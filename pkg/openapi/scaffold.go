package openapi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/validation"
)

// ExtensionKey is the schema extension holding per-property overrides:
// control, label, placeholder, hidden and props.
const ExtensionKey = "x-formkit"

var (
	// ErrOperationNotFound is returned when no operation matches the id.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestSchema is returned when the operation has no object request
	// body.
	ErrNoRequestSchema = errors.New("openapi: operation has no request body schema")
)

var mediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

// Option configures scaffolding.
type Option func(*config)

type config struct {
	labeler Labeler
	title   string
}

// WithLabeler replaces DefaultLabeler for properties without a title.
func WithLabeler(labeler Labeler) Option {
	return func(c *config) {
		if labeler != nil {
			c.labeler = labeler
		}
	}
}

// WithTitle sets the title of the top-level section. It defaults to the
// operation summary.
func WithTitle(title string) Option {
	return func(c *config) {
		c.title = title
	}
}

// Scaffold is the result of mapping one operation.
type Scaffold struct {
	OperationID string
	Method      string
	Path        string
	Summary     string
	Sections    []form.Section
	// Defaults holds the schema `default` values at their field paths, ready
	// to seed a mount.
	Defaults form.Record
}

// Sections maps the request body of operationID into form sections.
func Sections(ctx context.Context, data []byte, operationID string, opts ...Option) ([]form.Section, error) {
	scaffold, err := Build(ctx, data, operationID, opts...)
	if err != nil {
		return nil, err
	}
	return scaffold.Sections, nil
}

// Build parses data and maps the request body of operationID. Operations
// without an operationId match "<method>:<path>", e.g. "post:/pets".
// Top-level scalar properties land in the first section; each nested object
// becomes its own section with dotted field paths. Arrays are skipped.
func Build(ctx context.Context, data []byte, operationID string, opts ...Option) (Scaffold, error) {
	cfg := config{labeler: DefaultLabeler}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return Scaffold{}, fmt.Errorf("openapi: load document: %w", err)
	}

	method, path, op := findOperation(doc, operationID)
	if op == nil {
		return Scaffold{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	body := requestSchema(op)
	if body == nil || len(body.Properties) == 0 {
		return Scaffold{}, fmt.Errorf("%w: %q", ErrNoRequestSchema, operationID)
	}

	title := cfg.title
	if title == "" {
		title = op.Summary
	}
	s := &scaffolder{cfg: cfg, defaults: form.Record{}}
	root := form.Section{ID: "body", Title: title}
	if err := s.walk(body, nil, &root); err != nil {
		return Scaffold{}, err
	}

	sections := make([]form.Section, 0, len(s.nested)+1)
	if len(root.Fields) > 0 {
		sections = append(sections, root)
	}
	for _, section := range s.nested {
		if len(section.Fields) > 0 {
			sections = append(sections, section)
		}
	}

	return Scaffold{
		OperationID: operationID,
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
		Sections:    sections,
		Defaults:    s.defaults,
	}, nil
}

func findOperation(doc *openapi3.T, operationID string) (string, string, *openapi3.Operation) {
	if doc.Paths == nil {
		return "", "", nil
	}
	want := strings.TrimSpace(operationID)
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			if op.OperationID == want || strings.EqualFold(method+":"+path, want) {
				return strings.ToUpper(method), path, op
			}
		}
	}
	return "", "", nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range mediaTypes {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

type scaffolder struct {
	cfg      config
	nested   []form.Section
	defaults form.Record
}

func (s *scaffolder) walk(schema *openapi3.Schema, prefix form.Path, section *form.Section) error {
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		path := append(append(form.Path(nil), prefix...), name)

		if hasType(prop, openapi3.TypeObject) && len(prop.Properties) > 0 {
			child := form.Section{ID: path.String(), Title: s.label(name, prop)}
			// Reserve the slot so parents precede their children.
			idx := len(s.nested)
			s.nested = append(s.nested, form.Section{})
			if err := s.walk(prop, path, &child); err != nil {
				return err
			}
			s.nested[idx] = child
			continue
		}

		field, ok, err := s.field(name, path, prop, slices.Contains(schema.Required, name))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		section.Fields = append(section.Fields, field)

		if prop.Default != nil {
			next, err := path.Set(s.defaults, prop.Default, form.CreateMissing)
			if err != nil {
				return fmt.Errorf("openapi: default for %q: %w", path.String(), err)
			}
			s.defaults = next
		}
	}
	return nil
}

func (s *scaffolder) field(name string, path form.Path, prop *openapi3.Schema, required bool) (form.Field, bool, error) {
	ext := extension(prop)
	control, ok := controlFor(prop)
	if override, _ := ext["control"].(string); override != "" {
		control, ok = override, true
	}
	if !ok {
		return form.Field{}, false, nil
	}

	validate, err := validation.FromRules(rulesFor(prop, required))
	if err != nil {
		return form.Field{}, false, fmt.Errorf("openapi: property %q: %w", path.String(), err)
	}

	label := s.label(name, prop)
	if override, _ := ext["label"].(string); override != "" {
		label = override
	}

	field := form.Field{
		ID:       form.FieldID(path.String()),
		Type:     control,
		Label:    form.Static(label),
		Value:    form.AtPath(path, form.CreateMissing),
		Validate: validate,
		Props:    propsFor(prop, ext, required),
	}
	if prop.ReadOnly {
		field.Readonly = form.Static(true)
	}
	if hidden, _ := ext["hidden"].(bool); hidden {
		field.Visible = form.Static(false)
	}
	return field, true, nil
}

func (s *scaffolder) label(name string, prop *openapi3.Schema) string {
	if title := strings.TrimSpace(prop.Title); title != "" {
		return title
	}
	return s.cfg.labeler(name)
}

func controlFor(prop *openapi3.Schema) (string, bool) {
	switch {
	case len(prop.Enum) > 0:
		return "select", true
	case hasType(prop, openapi3.TypeBoolean):
		return "checkbox", true
	case hasType(prop, openapi3.TypeInteger), hasType(prop, openapi3.TypeNumber):
		return "number", true
	case hasType(prop, openapi3.TypeString):
		switch {
		case prop.Format == "password":
			return "password", true
		case prop.Format == "textarea", prop.MaxLength != nil && *prop.MaxLength > 255:
			return "textarea", true
		}
		return "text", true
	}
	return "", false
}

func rulesFor(prop *openapi3.Schema, required bool) []validation.Rule {
	var rules []validation.Rule
	value := func(kind, v string) validation.Rule {
		return validation.Rule{Kind: kind, Params: map[string]string{"value": v}}
	}
	if required && !hasType(prop, openapi3.TypeBoolean) {
		rules = append(rules, validation.Rule{Kind: validation.KindRequired})
	}
	if prop.MinLength > 0 {
		rules = append(rules, value(validation.KindMinLength, strconv.FormatUint(prop.MinLength, 10)))
	}
	if prop.MaxLength != nil {
		rules = append(rules, value(validation.KindMaxLength, strconv.FormatUint(*prop.MaxLength, 10)))
	}
	if prop.Pattern != "" {
		rules = append(rules, validation.Rule{Kind: validation.KindPattern, Params: map[string]string{"pattern": prop.Pattern}})
	}
	if prop.Min != nil {
		rules = append(rules, value(validation.KindMin, formatFloat(*prop.Min)))
	}
	if prop.Max != nil {
		rules = append(rules, value(validation.KindMax, formatFloat(*prop.Max)))
	}
	return rules
}

func propsFor(prop *openapi3.Schema, ext map[string]any, required bool) map[string]any {
	props := make(map[string]any)
	if required {
		props["required"] = true
	}
	if description := strings.TrimSpace(prop.Description); description != "" {
		props["help"] = description
	}
	if placeholder, _ := ext["placeholder"].(string); placeholder != "" {
		props["placeholder"] = placeholder
	}
	if len(prop.Enum) > 0 {
		options := make([]string, 0, len(prop.Enum))
		for _, option := range prop.Enum {
			options = append(options, fmt.Sprint(option))
		}
		props["options"] = options
	}
	if hasType(prop, openapi3.TypeInteger) {
		props["step"] = "1"
	}
	if extra, ok := ext["props"].(map[string]any); ok {
		for key, value := range extra {
			props[key] = value
		}
	}
	if len(props) == 0 {
		return nil
	}
	return props
}

func extension(prop *openapi3.Schema) map[string]any {
	raw, ok := prop.Extensions[ExtensionKey].(map[string]any)
	if !ok {
		return nil
	}
	return raw
}

func hasType(prop *openapi3.Schema, typ string) bool {
	if prop.Type == nil {
		return false
	}
	return slices.Contains(prop.Type.Slice(), typ)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
