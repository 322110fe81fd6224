package catalog

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"

	"github.com/matthewbaird/backoffice/internal/types"
)

// Document is the exported shape of a catalog, consumed by the UI build.
type Document struct {
	BaseTab string                  `json:"base_tab"`
	Tabs    []TabInfo               `json:"tabs"`
	Fields  []types.FieldDefinition `json:"fields"`
}

// TabInfo pairs a tab identifier with its display title.
type TabInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Document returns the exportable representation of c.
func (c *Catalog) Document() Document {
	doc := Document{BaseTab: BaseTab, Fields: c.Fields()}
	tabs := c.DefaultTabs()
	if len(tabs) == 0 || tabs[0] != BaseTab {
		doc.Tabs = append(doc.Tabs, TabInfo{ID: BaseTab, Title: TabTitle(BaseTab)})
	}
	for _, t := range tabs {
		doc.Tabs = append(doc.Tabs, TabInfo{ID: t, Title: TabTitle(t)})
	}
	return doc
}

// ExportJSON renders the catalog as indented JSON.
func (c *Catalog) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c.Document(), "", "  ")
}

// ExportCUE renders the catalog as a formatted CUE value.
func (c *Catalog) ExportCUE() ([]byte, error) {
	v := cuecontext.New().Encode(c.Document())
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encoding catalog as CUE: %w", err)
	}
	out, err := format.Node(v.Syntax())
	if err != nil {
		return nil, fmt.Errorf("formatting CUE: %w", err)
	}
	return out, nil
}
