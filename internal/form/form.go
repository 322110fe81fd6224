// Package form builds the tabbed editing layout for one product from the
// field catalog and the resolved configuration of the product's category.
package form

import (
	"context"

	"github.com/matthewbaird/backoffice/internal/catalog"
	"github.com/matthewbaird/backoffice/internal/fieldconfig"
	"github.com/matthewbaird/backoffice/internal/types"
)

// Widget is the input control used for a field.
type Widget string

const (
	WidgetInput    Widget = "input"
	WidgetNumber   Widget = "number"
	WidgetTextarea Widget = "textarea"
	WidgetCheckbox Widget = "checkbox"
)

// WidgetFor selects the input control for a field kind.
func WidgetFor(kind types.FieldKind) Widget {
	switch kind {
	case types.KindNumber:
		return WidgetNumber
	case types.KindMultiline:
		return WidgetTextarea
	case types.KindBoolean:
		return WidgetCheckbox
	default:
		return WidgetInput
	}
}

// Field is one rendered input.
type Field struct {
	Name     string          `json:"name"`
	Label    string          `json:"label"`
	Kind     types.FieldKind `json:"kind"`
	Widget   Widget          `json:"widget"`
	Step     *float64        `json:"step,omitempty"`
	ReadOnly bool            `json:"read_only"`
	Value    any             `json:"value"`
}

// Tab is one section of the form.
type Tab struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Form is the complete layout for one product.
type Form struct {
	Category string `json:"category"`
	Tabs     []Tab  `json:"tabs"`
}

// Tab returns the tab with id.
func (f *Form) Tab(id string) (Tab, bool) {
	for _, t := range f.Tabs {
		if t.ID == id {
			return t, true
		}
	}
	return Tab{}, false
}

// Field returns the rendered field with name and the id of its tab.
func (f *Form) Field(name string) (Field, string, bool) {
	for _, t := range f.Tabs {
		for _, fld := range t.Fields {
			if fld.Name == name {
				return fld, t.ID, true
			}
		}
	}
	return Field{}, "", false
}

// ConfigSource resolves the effective configuration of a category.
type ConfigSource interface {
	Resolve(ctx context.Context, category string) *fieldconfig.Config
}

// Renderer builds forms. It is safe for concurrent use.
type Renderer struct {
	source  ConfigSource
	catalog *catalog.Catalog
}

// NewRenderer creates a Renderer over the given catalog.
func NewRenderer(source ConfigSource, c *catalog.Catalog) *Renderer {
	return &Renderer{source: source, catalog: c}
}

// Render resolves the configuration of category once and lays out every
// visible catalog field. values holds the product's current values by field
// name; missing values render as nil.
func (r *Renderer) Render(ctx context.Context, category string, values map[string]any) *Form {
	return Build(r.catalog, r.source.Resolve(ctx, category), values)
}

// Build lays out a form from an already resolved configuration.
func Build(c *catalog.Catalog, cfg *fieldconfig.Config, values map[string]any) *Form {
	placed := make(map[string][]Field)
	for _, def := range c.Fields() {
		if !cfg.IsVisible(def.Name) {
			continue
		}
		tab := cfg.TabOf(def.Name, def.DefaultTab)
		placed[tab] = append(placed[tab], Field{
			Name:     def.Name,
			Label:    def.Label,
			Kind:     def.Kind,
			Widget:   WidgetFor(def.Kind),
			Step:     def.Step,
			ReadOnly: cfg.IsDisabled(def.Name),
			Value:    values[def.Name],
		})
	}

	form := &Form{Category: cfg.Category()}
	for _, id := range cfg.AvailableTabs() {
		fields := placed[id]
		if len(fields) == 0 && id != catalog.BaseTab {
			continue
		}
		if fields == nil {
			fields = []Field{}
		}
		form.Tabs = append(form.Tabs, Tab{ID: id, Title: catalog.TabTitle(id), Fields: fields})
	}
	return form
}
