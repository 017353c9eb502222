package schema

// Table is a logical table: a user-defined shape distinct from the three
// fixed physical storage tables (records, links, schemas).
type Table struct {
	ID                string
	Title             string
	StorageNamePrefix string
	Columns           []*Column
	IsJunction        bool
	SoftDeleted       bool
}

// Column returns the column with the given id, or nil.
func (t *Table) Column(id string) *Column {
	for _, c := range t.Columns {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ColumnByTitleOrStorage resolves a column by id first, then title, then
// storage name — the same resolution order the record-operations layer
// uses for input keys.
func (t *Table) ColumnByTitleOrStorage(ref string) *Column {
	if c := t.Column(ref); c != nil {
		return c
	}
	for _, c := range t.Columns {
		if c.Title == ref || c.StorageName == ref {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the table's declared PK column, or nil if none is
// declared (callers then treat the physical id column as PK per invariant
// 3).
func (t *Table) PrimaryKey() *Column {
	for _, c := range t.Columns {
		if c.PK {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of t safe to mutate independently of the
// original — the schema snapshot a model façade binds for the duration of
// a request is treated as immutable.
func (t *Table) Clone() *Table {
	clone := *t
	clone.Columns = make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		clone.Columns[i] = c.Clone()
	}
	return &clone
}
