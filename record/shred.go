package record

import (
	"context"
	"encoding/json"
	"time"

	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/sanitize"
	"github.com/gridbase/gridbase/schema"
)

// systemValues holds the fixed physical fields split out of an input record.
type systemValues struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	createdBy string
	updatedBy string
}

// shred sanitizes the full input, then separates it into system values and
// the user-data blob: virtual columns are dropped, system columns dispatch
// to their physical fields, user columns land in the blob under their
// storage names with type coercion applied. Unknown keys are kept in the
// blob as-is, except the reserved physical names, which always dispatch.
func (c *Client) shred(t *schema.Table, data Record) (systemValues, map[string]any, error) {
	var sys systemValues
	blob := make(map[string]any, len(data))

	clean, _ := sanitize.Value(map[string]any(data)).(map[string]any)
	for key, v := range clean {
		col := t.ColumnByTitleOrStorage(key)
		switch {
		case col == nil:
			if !dispatchReserved(&sys, key, v) {
				blob[key] = v
			}
		case col.IsVirtual():
			// Never materializes; silently dropped on write.
		case col.PK:
			sys.id = asString(v)
		case col.IsSystem():
			dispatchSystem(&sys, col.Kind, v)
		default:
			blob[col.StorageName] = Coerce(col, v)
		}
	}
	return sys, blob, nil
}

// dispatchReserved routes the reserved physical key names that are not
// schema columns (id, created_at, ...) to their system slots. table_id is
// swallowed: the owning table is always the client's, never the input's.
func dispatchReserved(sys *systemValues, key string, v any) bool {
	switch key {
	case "id":
		sys.id = asString(v)
	case "created_at":
		sys.createdAt = asTime(v)
	case "updated_at":
		sys.updatedAt = asTime(v)
	case "created_by":
		sys.createdBy = asString(v)
	case "updated_by":
		sys.updatedBy = asString(v)
	case "table_id":
	default:
		return false
	}
	return true
}

func dispatchSystem(sys *systemValues, kind schema.Kind, v any) {
	switch kind {
	case schema.KindCreatedTime:
		sys.createdAt = asTime(v)
	case schema.KindLastModifiedTime:
		sys.updatedAt = asTime(v)
	case schema.KindCreatedBy:
		sys.createdBy = asString(v)
	case schema.KindLastModifiedBy:
		sys.updatedBy = asString(v)
	}
}

// queryRecords runs sel and deshreds each row back into a logical record:
// the JSON value blob merged with the system fields and any projected
// virtual columns.
func (c *Client) queryRecords(ctx context.Context, t *schema.Table, sel *sqlb.Selector, fields []string) ([]Record, error) {
	query, args := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		dest := make([]any, len(names))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec, err := deshredRow(names, dest)
		if err != nil {
			return nil, err
		}
		out = append(out, restrictFields(t, rec, fields))
	}
	return out, rows.Err()
}

// deshredRow rebuilds one logical record from a physical row. The first
// columns are always the seven system fields; anything after them is a
// projected virtual column keyed by its alias.
func deshredRow(names []string, dest []any) (Record, error) {
	rec := Record{}
	var blob map[string]any
	for i, name := range names {
		v := *(dest[i].(*any))
		switch name {
		case "data":
			if b := asBytes(v); len(b) > 0 {
				if err := json.Unmarshal(b, &blob); err != nil {
					return nil, err
				}
			}
		case "table_id":
			// Physical bookkeeping, not part of the logical record.
		case "created_by", "updated_by":
			if v != nil {
				rec[name] = asString(v)
			}
		case "id":
			rec[name] = asString(v)
		default:
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[name] = v
		}
	}
	for k, v := range blob {
		if _, taken := rec[k]; !taken {
			rec[k] = v
		}
	}
	return rec, nil
}

// restrictFields trims the record to the requested fields. The id is always
// kept; an empty field list keeps everything.
func restrictFields(t *schema.Table, rec Record, fields []string) Record {
	if len(fields) == 0 {
		return rec
	}
	keep := map[string]bool{"id": true}
	for _, f := range fields {
		if col := t.ColumnByTitleOrStorage(f); col != nil {
			keep[col.StorageName] = true
			continue
		}
		keep[f] = true
	}
	for k := range rec {
		if !keep[k] {
			delete(rec, k)
		}
	}
	return rec
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return ""
	}
}

func asBytes(v any) []byte {
	switch b := v.(type) {
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		return nil
	}
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
