// Package fieldconfig resolves the effective field configuration of a product
// category: catalog defaults overlaid with the persisted overrides.
package fieldconfig

import (
	"sort"

	"github.com/matthewbaird/backoffice/internal/catalog"
	"github.com/matthewbaird/backoffice/internal/types"
)

// MergeDefaults returns the configuration every field has when a category
// carries no overrides: visible, enabled, on its catalog default tab.
func MergeDefaults(c *catalog.Catalog) map[string]types.FieldState {
	base := make(map[string]types.FieldState, c.Len())
	for _, def := range c.Fields() {
		base[def.Name] = types.DefaultState(def)
	}
	return base
}

// ApplyOverrides copies base and overlays settings onto it. Settings for
// names outside base are kept so that ad-hoc rows stay visible to callers.
// An override with an empty tab keeps the base tab.
func ApplyOverrides(base map[string]types.FieldState, settings []types.FieldSetting) map[string]types.FieldState {
	effective := make(map[string]types.FieldState, len(base)+len(settings))
	for name, st := range base {
		effective[name] = st
	}
	for _, s := range settings {
		st := s.FieldState
		if st.Tab == "" {
			st.Tab = base[s.FieldName].Tab
		}
		effective[s.FieldName] = st
	}
	return effective
}

// Config is the resolved configuration of one category. It is immutable once
// built and safe to share between goroutines.
type Config struct {
	category  string
	catalog   *catalog.Catalog
	overrides map[string]types.FieldState
	effective map[string]types.FieldState
	tabs      []string
}

// NewConfig builds the configuration for category from the catalog and the
// override rows read for it.
func NewConfig(c *catalog.Catalog, category string, settings []types.FieldSetting) *Config {
	overrides := make(map[string]types.FieldState, len(settings))
	for _, s := range settings {
		overrides[s.FieldName] = s.FieldState
	}
	cfg := &Config{
		category:  category,
		catalog:   c,
		overrides: overrides,
		effective: ApplyOverrides(MergeDefaults(c), settings),
	}
	cfg.tabs = cfg.buildTabs()
	return cfg
}

// Category returns the category this configuration was resolved for.
func (c *Config) Category() string { return c.category }

// IsVisible reports whether the field is shown. Fields without an override are visible.
func (c *Config) IsVisible(fieldName string) bool {
	if st, ok := c.overrides[fieldName]; ok {
		return st.Visible
	}
	return true
}

// IsDisabled reports whether the field's input is read-only. Fields without
// an override are editable.
func (c *Config) IsDisabled(fieldName string) bool {
	if st, ok := c.overrides[fieldName]; ok {
		return st.Disabled
	}
	return false
}

// TabOf returns the tab the field is placed on, or defaultTab when the field
// has no override.
func (c *Config) TabOf(fieldName, defaultTab string) string {
	if st, ok := c.overrides[fieldName]; ok && st.Tab != "" {
		return st.Tab
	}
	return defaultTab
}

// AvailableTabs returns every tab used by the effective configuration. The
// base tab is always first; catalog tabs follow in catalog order, then tabs
// only referenced by ad-hoc overrides in lexical order.
func (c *Config) AvailableTabs() []string {
	out := make([]string, len(c.tabs))
	copy(out, c.tabs)
	return out
}

func (c *Config) buildTabs() []string {
	tabs := []string{catalog.BaseTab}
	seen := map[string]bool{catalog.BaseTab: true}
	add := func(tab string) {
		if tab == "" || seen[tab] {
			return
		}
		seen[tab] = true
		tabs = append(tabs, tab)
	}
	for _, def := range c.catalog.Fields() {
		add(c.effective[def.Name].Tab)
	}
	var extra []string
	for name, st := range c.effective {
		if _, inCatalog := c.catalog.Lookup(name); !inCatalog && !seen[st.Tab] {
			extra = append(extra, st.Tab)
		}
	}
	sort.Strings(extra)
	for _, t := range extra {
		add(t)
	}
	return tabs
}

// Overrides returns a copy of the override rows that were resolved, keyed by
// field name. It is empty for a category that has never been configured.
func (c *Config) Overrides() map[string]types.FieldState {
	out := make(map[string]types.FieldState, len(c.overrides))
	for k, v := range c.overrides {
		out[k] = v
	}
	return out
}

// Effective returns a copy of the merged configuration for every catalog
// field plus any overridden field outside the catalog.
func (c *Config) Effective() map[string]types.FieldState {
	out := make(map[string]types.FieldState, len(c.effective))
	for k, v := range c.effective {
		out[k] = v
	}
	return out
}
