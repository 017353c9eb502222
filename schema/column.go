package schema

import "fmt"

// Kind is a closed tagged-variant over every logical column type the engine
// understands. It replaces a runtime string switch with an enum so every
// compiler that dispatches on column kind is a total function over this
// set, checked by kindInfo below.
type Kind int

const (
	KindText Kind = iota
	KindLongText
	KindNumber
	KindDecimal
	KindCurrency
	KindPercent
	KindRating
	KindCheckbox
	KindDate
	KindDateTime
	KindTime
	KindDuration
	KindEmail
	KindPhone
	KindURL
	KindSingleSelect
	KindMultiSelect
	KindAttachment
	KindJSON
	KindFormula
	KindRollup
	KindLookup
	KindLinkToRecord
	KindLinksCount
	KindUser
	KindCreatedBy
	KindLastModifiedBy
	KindCreatedTime
	KindLastModifiedTime
	KindAutoNumber
	KindBarcode
	KindQR
	KindGeo
	KindGeometry
)

// Class is the storage discipline of a column: virtual columns never
// materialize, system columns live in fixed physical fields, user columns
// live inside the record's JSON value.
type Class int

const (
	ClassUserStored Class = iota
	ClassSystem
	ClassVirtual
)

func (c Class) String() string {
	switch c {
	case ClassSystem:
		return "system"
	case ClassVirtual:
		return "virtual"
	default:
		return "user"
	}
}

// castType is the SQL cast target for qualifiedColumnExprWithCast; empty
// means the column's raw JSON-extracted text is used as-is.
type kindMeta struct {
	name     string
	class    Class
	castType string // "", "numeric", "boolean", "date", "timestamp", "time"
}

// kindInfo is the exhaustiveness table every compiler consults instead of a
// bare switch on Kind; Info panics on an unregistered Kind so adding a new
// variant without registering it fails loudly instead of silently
// defaulting.
var kindInfo = map[Kind]kindMeta{
	KindText:             {"text", ClassUserStored, ""},
	KindLongText:         {"long text", ClassUserStored, ""},
	KindNumber:           {"number", ClassUserStored, "numeric"},
	KindDecimal:          {"decimal", ClassUserStored, "numeric"},
	KindCurrency:         {"currency", ClassUserStored, "numeric"},
	KindPercent:          {"percent", ClassUserStored, "numeric"},
	KindRating:           {"rating", ClassUserStored, "numeric"},
	KindCheckbox:         {"checkbox", ClassUserStored, "boolean"},
	KindDate:             {"date", ClassUserStored, "date"},
	KindDateTime:         {"datetime", ClassUserStored, "timestamp"},
	KindTime:             {"time", ClassUserStored, "time"},
	KindDuration:         {"duration", ClassUserStored, "numeric"},
	KindEmail:            {"email", ClassUserStored, ""},
	KindPhone:            {"phone", ClassUserStored, ""},
	KindURL:              {"url", ClassUserStored, ""},
	KindSingleSelect:     {"single select", ClassUserStored, ""},
	KindMultiSelect:      {"multi select", ClassUserStored, ""},
	KindAttachment:       {"attachment", ClassUserStored, ""},
	KindJSON:             {"json", ClassUserStored, ""},
	KindFormula:          {"formula", ClassVirtual, ""},
	KindRollup:           {"rollup", ClassVirtual, ""},
	KindLookup:           {"lookup", ClassVirtual, ""},
	KindLinkToRecord:     {"link to record", ClassVirtual, ""},
	KindLinksCount:       {"links count", ClassVirtual, ""},
	KindUser:             {"user", ClassUserStored, ""},
	KindCreatedBy:        {"created by", ClassSystem, ""},
	KindLastModifiedBy:   {"last modified by", ClassSystem, ""},
	KindCreatedTime:      {"created time", ClassSystem, "timestamp"},
	KindLastModifiedTime: {"last modified time", ClassSystem, "timestamp"},
	KindAutoNumber:       {"auto number", ClassUserStored, "numeric"},
	KindBarcode:          {"barcode", ClassUserStored, ""},
	KindQR:               {"qr", ClassUserStored, ""},
	KindGeo:              {"geo", ClassUserStored, ""},
	KindGeometry:         {"geometry", ClassUserStored, ""},
}

// info returns the registered metadata for k, panicking if k was never
// registered in kindInfo — every Kind constant above must have an entry.
func info(k Kind) kindMeta {
	m, ok := kindInfo[k]
	if !ok {
		panic(fmt.Sprintf("schema: unregistered column kind %d", int(k)))
	}
	return m
}

// Class returns the storage discipline for k.
func (k Kind) Class() Class { return info(k).class }

// CastType returns the SQL type qualifiedColumnExprWithCast should cast to,
// or "" if the raw text extraction is sufficient.
func (k Kind) CastType() string { return info(k).castType }

func (k Kind) String() string { return info(k).name }

// LinkType distinguishes the three relation shapes a KindLinkToRecord
// column can represent.
type LinkType int

const (
	LinkManyToMany LinkType = iota
	LinkHasMany
	LinkBelongsTo
)

// Aggregation is the aggregate function a rollup column applies over its
// related records.
type Aggregation int

const (
	AggCount Aggregation = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggCountEmpty
	AggCountNotEmpty
	AggCountDistinct
	AggSumDistinct
	AggAvgDistinct
)

// LinkOptions configures a KindLinkToRecord / KindLinksCount column.
type LinkOptions struct {
	Type             LinkType
	RelatedTableID   string
	Bidirectional    bool
	SymmetricColumnID string // inverse column on the related table, if any
	FKColumnStorage  string  // storage name of the JSON FK field for hm/bt
}

// FormulaOptions configures a KindFormula column.
type FormulaOptions struct {
	Expression string
}

// RollupOptions configures a KindRollup column.
type RollupOptions struct {
	RelationColumnID string // the link column the rollup aggregates over
	TargetColumnID   string // the column on the related table being aggregated
	Aggregation      Aggregation
}

// LookupOptions configures a KindLookup column.
type LookupOptions struct {
	RelationColumnID string
	TargetColumnID   string
}

// Column is one logical column of a Table.
type Column struct {
	ID          string
	Title       string
	StorageName string
	Kind        Kind
	PK          bool
	Required    bool
	Default     any

	Link    *LinkOptions
	Formula *FormulaOptions
	Rollup  *RollupOptions
	Lookup  *LookupOptions
}

// Class reports the column's storage discipline.
func (c *Column) Class() Class { return c.Kind.Class() }

// IsVirtual reports whether c never materializes a physical value.
func (c *Column) IsVirtual() bool { return c.Class() == ClassVirtual }

// IsSystem reports whether c lives in a fixed physical field rather than
// the record's JSON blob.
func (c *Column) IsSystem() bool { return c.Class() == ClassSystem }

// Clone returns a deep-enough copy of c safe to mutate independently.
func (c *Column) Clone() *Column {
	clone := *c
	if c.Link != nil {
		link := *c.Link
		clone.Link = &link
	}
	if c.Formula != nil {
		f := *c.Formula
		clone.Formula = &f
	}
	if c.Rollup != nil {
		r := *c.Rollup
		clone.Rollup = &r
	}
	if c.Lookup != nil {
		l := *c.Lookup
		clone.Lookup = &l
	}
	return &clone
}
