package store

import "github.com/kadirbelkuyu/schemagraph/internal/graph"

// mergeTable carries documentation forward from a previously persisted
// table document into a freshly built one. Structural fields always come
// from the fresh build; the table description and keywords, and each
// column's description and keywords, are kept from the existing document
// when the build produced empty ones. Writing the same build twice is
// therefore byte-stable.
func mergeTable(fresh, existing *graph.Table) {
	if existing == nil {
		return
	}

	if fresh.Description == "" && existing.Description != "" {
		fresh.Description = existing.Description
	}
	if len(fresh.Keywords) == 0 && len(existing.Keywords) > 0 {
		fresh.Keywords = append([]string(nil), existing.Keywords...)
	}

	prior := make(map[string]*graph.Column, len(existing.Columns))
	for i := range existing.Columns {
		prior[existing.Columns[i].Name] = &existing.Columns[i]
	}

	for i := range fresh.Columns {
		old, ok := prior[fresh.Columns[i].Name]
		if !ok {
			continue
		}
		if fresh.Columns[i].Description == "" && old.Description != "" {
			fresh.Columns[i].Description = old.Description
		}
		if len(fresh.Columns[i].Keywords) == 0 && len(old.Keywords) > 0 {
			fresh.Columns[i].Keywords = append([]string(nil), old.Keywords...)
		}
	}
}

// mergeIndex carries short descriptions forward from an existing schema
// index into a freshly built one, matching entries by schema and name.
func mergeIndex(fresh, existing *graph.SchemaIndex) {
	if existing == nil {
		return
	}

	tables := make(map[graph.TableKey]string, len(existing.Tables))
	for _, entry := range existing.Tables {
		if entry.ShortDescription != "" {
			tables[graph.TableKey{Schema: entry.Schema, Table: entry.Table}] = entry.ShortDescription
		}
	}
	for i := range fresh.Tables {
		if fresh.Tables[i].ShortDescription != "" {
			continue
		}
		key := graph.TableKey{Schema: fresh.Tables[i].Schema, Table: fresh.Tables[i].Table}
		if desc, ok := tables[key]; ok {
			fresh.Tables[i].ShortDescription = desc
		}
	}

	views := make(map[graph.TableKey]string, len(existing.Views))
	for _, entry := range existing.Views {
		if entry.ShortDescription != "" {
			views[graph.TableKey{Schema: entry.Schema, Table: entry.View}] = entry.ShortDescription
		}
	}
	for i := range fresh.Views {
		if fresh.Views[i].ShortDescription != "" {
			continue
		}
		key := graph.TableKey{Schema: fresh.Views[i].Schema, Table: fresh.Views[i].View}
		if desc, ok := views[key]; ok {
			fresh.Views[i].ShortDescription = desc
		}
	}
}
