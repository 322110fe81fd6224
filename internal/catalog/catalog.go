// Package catalog holds the code-defined list of product attributes and the
// tab each attribute is placed on when no per-category override exists.
package catalog

import (
	"fmt"

	"github.com/matthewbaird/backoffice/internal/types"
)

// Tab identifiers used by the product editing form.
const (
	TabGeneral   = "algemeen"
	TabPurchase  = "inkoop"
	TabSales     = "verkoop"
	TabBeverages = "dranken"
	TabLogistics = "logistiek"
)

// BaseTab is always present in a product form, even for a category whose
// configuration moves every field elsewhere.
const BaseTab = TabGeneral

// TabTitles maps known tab identifiers to their display titles. Tabs invented
// by an operator have no entry and are shown under their identifier.
var TabTitles = map[string]string{
	TabGeneral:   "Algemeen",
	TabPurchase:  "Inkoop",
	TabSales:     "Verkoop",
	TabBeverages: "Dranken",
	TabLogistics: "Logistiek",
}

// TabTitle returns the display title for a tab identifier.
func TabTitle(tab string) string {
	if t, ok := TabTitles[tab]; ok {
		return t
	}
	return tab
}

// Catalog is an ordered, immutable set of field definitions with unique names.
type Catalog struct {
	fields []types.FieldDefinition
	byName map[string]int
}

// New builds a Catalog, rejecting duplicate names, unknown kinds and
// definitions without a default tab.
func New(defs ...types.FieldDefinition) (*Catalog, error) {
	c := &Catalog{
		fields: make([]types.FieldDefinition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("catalog: field without name (label %q)", d.Label)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate field %q", d.Name)
		}
		if !d.Kind.Valid() {
			return nil, fmt.Errorf("catalog: field %q has unknown kind %q", d.Name, d.Kind)
		}
		if d.DefaultTab == "" {
			return nil, fmt.Errorf("catalog: field %q has no default tab", d.Name)
		}
		c.byName[d.Name] = len(c.fields)
		c.fields = append(c.fields, d)
	}
	return c, nil
}

// MustNew is like New but panics on an invalid definition list.
func MustNew(defs ...types.FieldDefinition) *Catalog {
	c, err := New(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Fields returns the definitions in catalog order. The slice must not be modified.
func (c *Catalog) Fields() []types.FieldDefinition {
	return c.fields
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.fields)
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (types.FieldDefinition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return types.FieldDefinition{}, false
	}
	return c.fields[i], true
}

// Names returns the field names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.fields))
	for i, f := range c.fields {
		names[i] = f.Name
	}
	return names
}

// DefaultTabs returns the distinct default tabs in order of first appearance.
func (c *Catalog) DefaultTabs() []string {
	seen := make(map[string]bool)
	var tabs []string
	for _, f := range c.fields {
		if seen[f.DefaultTab] {
			continue
		}
		seen[f.DefaultTab] = true
		tabs = append(tabs, f.DefaultTab)
	}
	return tabs
}

func step(v float64) *float64 { return &v }

// Products is the catalog of every attribute a product record may carry.
var Products = MustNew(
	// === Algemeen ===
	types.FieldDefinition{Name: "naam", Label: "Naam", Kind: types.KindText, DefaultTab: TabGeneral},
	types.FieldDefinition{Name: "artikelnummer", Label: "Artikelnummer", Kind: types.KindText, DefaultTab: TabGeneral},
	types.FieldDefinition{Name: "ean", Label: "EAN-code", Kind: types.KindText, DefaultTab: TabGeneral},
	types.FieldDefinition{Name: "merk", Label: "Merk", Kind: types.KindText, DefaultTab: TabGeneral},
	types.FieldDefinition{Name: "omschrijving", Label: "Omschrijving", Kind: types.KindMultiline, DefaultTab: TabGeneral},
	types.FieldDefinition{Name: "actief", Label: "Actief", Kind: types.KindBoolean, DefaultTab: TabGeneral},

	// === Inkoop ===
	types.FieldDefinition{Name: "leverancier", Label: "Leverancier", Kind: types.KindText, DefaultTab: TabPurchase},
	types.FieldDefinition{Name: "leverancier_artikelnummer", Label: "Artikelnummer leverancier", Kind: types.KindText, DefaultTab: TabPurchase},
	types.FieldDefinition{Name: "kostprijs", Label: "Kostprijs", Kind: types.KindNumber, DefaultTab: TabPurchase, Step: step(0.01)},
	types.FieldDefinition{Name: "minimale_bestelhoeveelheid", Label: "Minimale bestelhoeveelheid", Kind: types.KindNumber, DefaultTab: TabPurchase, Step: step(1)},

	// === Verkoop ===
	types.FieldDefinition{Name: "verkoopprijs", Label: "Verkoopprijs", Kind: types.KindNumber, DefaultTab: TabSales, Step: step(0.01)},
	types.FieldDefinition{Name: "btw_tarief", Label: "Btw-tarief (%)", Kind: types.KindNumber, DefaultTab: TabSales, Step: step(1)},
	types.FieldDefinition{Name: "marge", Label: "Marge (%)", Kind: types.KindNumber, DefaultTab: TabSales, Step: step(0.1)},
	types.FieldDefinition{Name: "verkoopeenheid", Label: "Verkoopeenheid", Kind: types.KindText, DefaultTab: TabSales},

	// === Dranken ===
	types.FieldDefinition{Name: "abv", Label: "Alcoholpercentage", Kind: types.KindNumber, DefaultTab: TabBeverages, Step: step(0.1)},
	types.FieldDefinition{Name: "inhoud_ml", Label: "Inhoud (ml)", Kind: types.KindNumber, DefaultTab: TabBeverages, Step: step(1)},
	types.FieldDefinition{Name: "statiegeld", Label: "Statiegeld", Kind: types.KindNumber, DefaultTab: TabBeverages, Step: step(0.01)},
	types.FieldDefinition{Name: "druivenras", Label: "Druivenras", Kind: types.KindText, DefaultTab: TabBeverages},
	types.FieldDefinition{Name: "land_van_herkomst", Label: "Land van herkomst", Kind: types.KindText, DefaultTab: TabBeverages},
	types.FieldDefinition{Name: "smaakprofiel", Label: "Smaakprofiel", Kind: types.KindMultiline, DefaultTab: TabBeverages},

	// === Logistiek ===
	types.FieldDefinition{Name: "gewicht_kg", Label: "Gewicht (kg)", Kind: types.KindNumber, DefaultTab: TabLogistics, Step: step(0.001)},
	types.FieldDefinition{Name: "colli", Label: "Stuks per colli", Kind: types.KindNumber, DefaultTab: TabLogistics, Step: step(1)},
	types.FieldDefinition{Name: "houdbaarheid_dagen", Label: "Houdbaarheid (dagen)", Kind: types.KindNumber, DefaultTab: TabLogistics, Step: step(1)},
	types.FieldDefinition{Name: "gekoeld", Label: "Gekoeld transport", Kind: types.KindBoolean, DefaultTab: TabLogistics},
	types.FieldDefinition{Name: "opslaglocatie", Label: "Opslaglocatie", Kind: types.KindText, DefaultTab: TabLogistics},
)
