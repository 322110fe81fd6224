package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/backoffice/internal/types"
)

func TestProducts_NamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range Products.Fields() {
		assert.False(t, seen[f.Name], "duplicate field %q", f.Name)
		seen[f.Name] = true
	}
	assert.Equal(t, len(seen), Products.Len())
}

func TestProducts_EveryFieldHasKnownKindAndTab(t *testing.T) {
	for _, f := range Products.Fields() {
		assert.True(t, f.Kind.Valid(), "field %q kind %q", f.Name, f.Kind)
		_, known := TabTitles[f.DefaultTab]
		assert.True(t, known, "field %q default tab %q has no title", f.Name, f.DefaultTab)
		if f.Kind != types.KindNumber {
			assert.Nil(t, f.Step, "field %q: step only applies to number inputs", f.Name)
		}
	}
}

func TestProducts_DefaultTabsStartWithBase(t *testing.T) {
	tabs := Products.DefaultTabs()
	require.NotEmpty(t, tabs)
	assert.Equal(t, BaseTab, tabs[0])
	assert.Equal(t, []string{TabGeneral, TabPurchase, TabSales, TabBeverages, TabLogistics}, tabs)
}

func TestLookup(t *testing.T) {
	def, ok := Products.Lookup("kostprijs")
	require.True(t, ok)
	assert.Equal(t, TabPurchase, def.DefaultTab)
	assert.Equal(t, types.KindNumber, def.Kind)
	require.NotNil(t, def.Step)
	assert.InDelta(t, 0.01, *def.Step, 1e-9)

	_, ok = Products.Lookup("bestaat_niet")
	assert.False(t, ok)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name string
		defs []types.FieldDefinition
		want string
	}{
		{
			name: "duplicate",
			defs: []types.FieldDefinition{
				{Name: "a", Kind: types.KindText, DefaultTab: "x"},
				{Name: "a", Kind: types.KindText, DefaultTab: "x"},
			},
			want: "duplicate",
		},
		{
			name: "unknown kind",
			defs: []types.FieldDefinition{{Name: "a", Kind: "date", DefaultTab: "x"}},
			want: "unknown kind",
		},
		{
			name: "missing tab",
			defs: []types.FieldDefinition{{Name: "a", Kind: types.KindText}},
			want: "no default tab",
		},
		{
			name: "missing name",
			defs: []types.FieldDefinition{{Label: "A", Kind: types.KindText, DefaultTab: "x"}},
			want: "without name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.defs...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNew(types.FieldDefinition{Name: "a", Kind: "bogus", DefaultTab: "x"})
	})
}

func TestTabTitle(t *testing.T) {
	assert.Equal(t, "Verkoop", TabTitle(TabSales))
	assert.Equal(t, "promoties", TabTitle("promoties"))
}

func TestExportJSON(t *testing.T) {
	out, err := Products.ExportJSON()
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, BaseTab, doc.BaseTab)
	assert.Len(t, doc.Fields, Products.Len())
	require.NotEmpty(t, doc.Tabs)
	assert.Equal(t, BaseTab, doc.Tabs[0].ID)
}

func TestDocument_PrependsBaseTab(t *testing.T) {
	c := MustNew(types.FieldDefinition{Name: "abv", Kind: types.KindNumber, DefaultTab: TabBeverages})
	doc := c.Document()
	require.Len(t, doc.Tabs, 2)
	assert.Equal(t, BaseTab, doc.Tabs[0].ID)
	assert.Equal(t, TabBeverages, doc.Tabs[1].ID)
}

func TestExportCUE(t *testing.T) {
	out, err := Products.ExportCUE()
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.Contains(text, "base_tab"), "missing base_tab in:\n%s", text)
	assert.Contains(t, text, `"kostprijs"`)
}
