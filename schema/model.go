package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/gridbase/gridbase/sanitize"
)

// Sentinel errors the model reports; the model façade (root package
// gridbase) classifies these into the Kind taxonomy at the boundary rather
// than this package depending upward on the façade.
var (
	ErrTableExists    = errors.New("schema: table already exists")
	ErrTableNotFound  = errors.New("schema: table not found")
	ErrColumnExists   = errors.New("schema: column already exists")
	ErrColumnNotFound = errors.New("schema: column not found")
)

// TableDef/ColumnDef are the inputs to createTable/addColumn: everything a
// caller may supply, with ID optional.
type TableDef struct {
	ID                string
	Title             string
	StorageNamePrefix string
	IsJunction        bool
}

type ColumnDef struct {
	ID          string
	Title       string
	StorageName string
	Kind        Kind
	PK          bool
	Required    bool
	Default     any
	Link        *LinkOptions
	Formula     *FormulaOptions
	Rollup      *RollupOptions
	Lookup      *LookupOptions
}

// Model is the in-memory representation of every table in one schema
// snapshot. All operations below are in-memory only; persistence is
// Store's job.
type Model struct {
	tables map[string]*Table
	order  []string // insertion order, for deterministic export
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{tables: make(map[string]*Table)}
}

// Table returns the table with the given id, or nil.
func (m *Model) Table(id string) *Table {
	return m.tables[id]
}

// Tables returns every table in insertion order.
func (m *Model) Tables() []*Table {
	out := make([]*Table, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tables[id])
	}
	return out
}

// slugify derives a storage-safe identifier from a human title, e.g.
// "Order Items" -> "order_items".
func slugify(title string) string {
	return inflect.Underscore(strings.TrimSpace(title))
}

// CreateTable allocates an id from def.Title when def.ID is empty, and
// errors if the id already exists.
func (m *Model) CreateTable(def TableDef) (*Table, error) {
	tableID := def.ID
	if tableID == "" {
		tableID = slugify(def.Title)
	}
	if _, err := sanitize.Identifier(tableID); err != nil {
		return nil, fmt.Errorf("schema: invalid table id %q: %w", tableID, err)
	}
	if _, exists := m.tables[tableID]; exists {
		return nil, fmt.Errorf("schema: table %q already exists: %w", tableID, ErrTableExists)
	}
	prefix := def.StorageNamePrefix
	if prefix == "" {
		prefix = inflect.Pluralize(slugify(def.Title))
	}
	t := &Table{
		ID:                tableID,
		Title:             def.Title,
		StorageNamePrefix: prefix,
		IsJunction:        def.IsJunction,
	}
	m.tables[tableID] = t
	m.order = append(m.order, tableID)
	return t, nil
}

// AddColumn appends a normalized column to tableId, erroring on a duplicate
// column id.
func (m *Model) AddColumn(tableID string, def ColumnDef) (*Column, error) {
	t := m.tables[tableID]
	if t == nil {
		return nil, fmt.Errorf("schema: table %q: %w", tableID, ErrTableNotFound)
	}
	colID := def.ID
	if colID == "" {
		colID = slugify(def.Title)
	}
	if t.Column(colID) != nil {
		return nil, fmt.Errorf("schema: column %q already exists on table %q: %w", colID, tableID, ErrColumnExists)
	}
	storageName := def.StorageName
	if storageName == "" {
		storageName = slugify(def.Title)
	}
	if _, err := sanitize.Identifier(storageName); err != nil {
		return nil, fmt.Errorf("schema: invalid storage name %q for column %q: %w", storageName, colID, err)
	}
	c := &Column{
		ID:          colID,
		Title:       def.Title,
		StorageName: storageName,
		Kind:        def.Kind,
		PK:          def.PK,
		Required:    def.Required,
		Default:     def.Default,
		Link:        def.Link,
		Formula:     def.Formula,
		Rollup:      def.Rollup,
		Lookup:      def.Lookup,
	}
	t.Columns = append(t.Columns, c)
	return c, nil
}

// UpdateTable replaces only the provided (non-zero) fields of the table
// identified by id.
func (m *Model) UpdateTable(id string, patch TableDef) (*Table, error) {
	t := m.tables[id]
	if t == nil {
		return nil, fmt.Errorf("schema: table %q: %w", id, ErrTableNotFound)
	}
	if patch.Title != "" {
		t.Title = patch.Title
	}
	if patch.StorageNamePrefix != "" {
		t.StorageNamePrefix = patch.StorageNamePrefix
	}
	return t, nil
}

// UpdateColumn field-wise replaces only the provided keys of the column.
// Zero-valued fields in patch are treated as "not provided". Kind, PK and
// Required are never changed by UpdateColumn.
func (m *Model) UpdateColumn(tableID, columnID string, patch ColumnDef) (*Column, error) {
	t := m.tables[tableID]
	if t == nil {
		return nil, fmt.Errorf("schema: table %q: %w", tableID, ErrTableNotFound)
	}
	c := t.Column(columnID)
	if c == nil {
		return nil, fmt.Errorf("schema: column %q: %w", columnID, ErrColumnNotFound)
	}
	if patch.Title != "" {
		c.Title = patch.Title
	}
	if patch.StorageName != "" {
		if _, err := sanitize.Identifier(patch.StorageName); err != nil {
			return nil, fmt.Errorf("schema: invalid storage name %q for column %q: %w", patch.StorageName, columnID, err)
		}
		c.StorageName = patch.StorageName
	}
	if patch.Default != nil {
		c.Default = patch.Default
	}
	if patch.Link != nil {
		c.Link = patch.Link
	}
	if patch.Formula != nil {
		c.Formula = patch.Formula
	}
	if patch.Rollup != nil {
		c.Rollup = patch.Rollup
	}
	if patch.Lookup != nil {
		c.Lookup = patch.Lookup
	}
	return c, nil
}

// DropTable removes the table and strips any link columns elsewhere in the
// model whose related table is id, preserving referential integrity of the
// schema itself (not the data — orphaned link edges are a record/link
// operations concern, not a schema one).
func (m *Model) DropTable(id string) error {
	if _, ok := m.tables[id]; !ok {
		return fmt.Errorf("schema: table %q: %w", id, ErrTableNotFound)
	}
	delete(m.tables, id)
	for i, tid := range m.order {
		if tid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for _, t := range m.tables {
		kept := t.Columns[:0:0]
		for _, c := range t.Columns {
			if c.Link != nil && c.Link.RelatedTableID == id {
				continue
			}
			kept = append(kept, c)
		}
		t.Columns = kept
	}
	return nil
}

// DropColumn removes a column; if it is a link column with a symmetric
// partner, the partner is removed too.
func (m *Model) DropColumn(tableID, columnID string) error {
	t := m.tables[tableID]
	if t == nil {
		return fmt.Errorf("schema: table %q: %w", tableID, ErrTableNotFound)
	}
	c := t.Column(columnID)
	if c == nil {
		return fmt.Errorf("schema: column %q: %w", columnID, ErrColumnNotFound)
	}
	removeColumn(t, columnID)
	if c.Link != nil && c.Link.SymmetricColumnID != "" {
		if related := m.tables[c.Link.RelatedTableID]; related != nil {
			removeColumn(related, c.Link.SymmetricColumnID)
		}
	}
	return nil
}

func removeColumn(t *Table, id string) {
	for i, c := range t.Columns {
		if c.ID == id {
			t.Columns = append(t.Columns[:i], t.Columns[i+1:]...)
			return
		}
	}
}

// CreateLinkDef is the input to CreateLink.
type CreateLinkDef struct {
	SourceTableID  string
	TargetTableID  string
	Title          string
	Type           LinkType
	Bidirectional  bool
	InverseTitle   string
}

// CreateLink creates a link column on the source table; if Bidirectional,
// it also creates an inverse column on the target table and cross-
// references their ids as each other's SymmetricColumnID.
func (m *Model) CreateLink(def CreateLinkDef) (*Column, *Column, error) {
	src := m.tables[def.SourceTableID]
	if src == nil {
		return nil, nil, fmt.Errorf("schema: table %q: %w", def.SourceTableID, ErrTableNotFound)
	}
	if _, ok := m.tables[def.TargetTableID]; !ok {
		return nil, nil, fmt.Errorf("schema: table %q: %w", def.TargetTableID, ErrTableNotFound)
	}

	fwd, err := m.AddColumn(def.SourceTableID, ColumnDef{
		Title: def.Title,
		Kind:  KindLinkToRecord,
		Link: &LinkOptions{
			Type:           def.Type,
			RelatedTableID: def.TargetTableID,
			Bidirectional:  def.Bidirectional,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	if !def.Bidirectional {
		return fwd, nil, nil
	}

	inverseTitle := def.InverseTitle
	if inverseTitle == "" {
		inverseTitle = src.Title
	}
	inv, err := m.AddColumn(def.TargetTableID, ColumnDef{
		Title: inverseTitle,
		Kind:  KindLinkToRecord,
		Link: &LinkOptions{
			Type:           inverseLinkType(def.Type),
			RelatedTableID: def.SourceTableID,
			Bidirectional:  true,
		},
	})
	if err != nil {
		return nil, nil, err
	}

	fwd.Link.SymmetricColumnID = inv.ID
	inv.Link.SymmetricColumnID = fwd.ID
	return fwd, inv, nil
}

func inverseLinkType(t LinkType) LinkType {
	switch t {
	case LinkHasMany:
		return LinkBelongsTo
	case LinkBelongsTo:
		return LinkHasMany
	default:
		return LinkManyToMany
	}
}

// ExportSchema returns a JSON-marshalable snapshot of the model, suitable
// for handing to a Store as a versioned payload.
func (m *Model) ExportSchema() map[string]any {
	tables := make([]any, 0, len(m.order))
	for _, id := range m.order {
		t := m.tables[id]
		cols := make([]any, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, columnToMap(c))
		}
		tables = append(tables, map[string]any{
			"id":                  t.ID,
			"title":               t.Title,
			"storage_name_prefix": t.StorageNamePrefix,
			"is_junction":         t.IsJunction,
			"soft_deleted":        t.SoftDeleted,
			"columns":             cols,
		})
	}
	return map[string]any{"tables": tables}
}

func columnToMap(c *Column) map[string]any {
	m := map[string]any{
		"id":           c.ID,
		"title":        c.Title,
		"storage_name": c.StorageName,
		"kind":         int(c.Kind),
		"pk":           c.PK,
		"required":     c.Required,
	}
	if c.Default != nil {
		m["default"] = c.Default
	}
	if c.Link != nil {
		m["link"] = map[string]any{
			"type":               int(c.Link.Type),
			"related_table_id":   c.Link.RelatedTableID,
			"bidirectional":      c.Link.Bidirectional,
			"symmetric_column_id": c.Link.SymmetricColumnID,
		}
	}
	if c.Formula != nil {
		m["formula"] = map[string]any{"expression": c.Formula.Expression}
	}
	if c.Rollup != nil {
		m["rollup"] = map[string]any{
			"relation_column_id": c.Rollup.RelationColumnID,
			"target_column_id":   c.Rollup.TargetColumnID,
			"aggregation":        int(c.Rollup.Aggregation),
		}
	}
	if c.Lookup != nil {
		m["lookup"] = map[string]any{
			"relation_column_id": c.Lookup.RelationColumnID,
			"target_column_id":   c.Lookup.TargetColumnID,
		}
	}
	return m
}

// ImportSchema replaces (merge=false) or upserts-by-id (merge=true) the
// model's tables from a JSON-decoded payload in ExportSchema's shape.
func (m *Model) ImportSchema(payload map[string]any, merge bool) error {
	rawTables, _ := payload["tables"].([]any)
	if !merge {
		m.tables = make(map[string]*Table)
		m.order = nil
	}
	for _, raw := range rawTables {
		tm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		t, err := tableFromMap(tm)
		if err != nil {
			return err
		}
		if _, exists := m.tables[t.ID]; !exists {
			m.order = append(m.order, t.ID)
		}
		m.tables[t.ID] = t
	}
	return nil
}

func tableFromMap(tm map[string]any) (*Table, error) {
	t := &Table{
		ID:                str(tm["id"]),
		Title:             str(tm["title"]),
		StorageNamePrefix: str(tm["storage_name_prefix"]),
		IsJunction:        boolOf(tm["is_junction"]),
		SoftDeleted:       boolOf(tm["soft_deleted"]),
	}
	rawCols, _ := tm["columns"].([]any)
	for _, rc := range rawCols {
		cm, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, columnFromMap(cm))
	}
	return t, nil
}

func columnFromMap(cm map[string]any) *Column {
	c := &Column{
		ID:          str(cm["id"]),
		Title:       str(cm["title"]),
		StorageName: str(cm["storage_name"]),
		Kind:        Kind(intOf(cm["kind"])),
		PK:          boolOf(cm["pk"]),
		Required:    boolOf(cm["required"]),
		Default:     cm["default"],
	}
	if lm, ok := cm["link"].(map[string]any); ok {
		c.Link = &LinkOptions{
			Type:              LinkType(intOf(lm["type"])),
			RelatedTableID:    str(lm["related_table_id"]),
			Bidirectional:     boolOf(lm["bidirectional"]),
			SymmetricColumnID: str(lm["symmetric_column_id"]),
		}
	}
	if fm, ok := cm["formula"].(map[string]any); ok {
		c.Formula = &FormulaOptions{Expression: str(fm["expression"])}
	}
	if rm, ok := cm["rollup"].(map[string]any); ok {
		c.Rollup = &RollupOptions{
			RelationColumnID: str(rm["relation_column_id"]),
			TargetColumnID:   str(rm["target_column_id"]),
			Aggregation:      Aggregation(intOf(rm["aggregation"])),
		}
	}
	if lm, ok := cm["lookup"].(map[string]any); ok {
		c.Lookup = &LookupOptions{
			RelationColumnID: str(lm["relation_column_id"]),
			TargetColumnID:   str(lm["target_column_id"]),
		}
	}
	return c
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}

func intOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
