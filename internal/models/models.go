// Package models holds the parsed JSON value tree and the flat table built from it.
package models

// Kind identifies which variant a JSONValue holds.
type Kind int

// JSONValue variants.
const (
	KindNull   Kind = iota // null
	KindBool               // true or false
	KindNumber             // number, kept as its source literal
	KindString             // string
	KindObject             // object with ordered members
	KindArray              // array
)

// String returns the JSON name of the kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// JSONValue is a parsed JSON node. Exactly one of the payload fields is
// meaningful, selected by Kind. Values are treated as immutable once built.
type JSONValue struct {
	Kind Kind

	// text holds the literal for numbers, the content for strings and
	// "true"/"false" for booleans.
	text string

	// Members holds object members in source order. Duplicate keys are kept.
	Members []Member

	// Elements holds array elements in source order.
	Elements []JSONValue
}

// Member is a single key/value pair of a JSON object.
type Member struct {
	Key   string
	Value JSONValue
}

// Null returns a JSON null.
func Null() JSONValue { return JSONValue{Kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) JSONValue {
	if b {
		return JSONValue{Kind: KindBool, text: "true"}
	}
	return JSONValue{Kind: KindBool, text: "false"}
}

// Number returns a JSON number holding the literal exactly as written.
func Number(literal string) JSONValue { return JSONValue{Kind: KindNumber, text: literal} }

// String returns a JSON string.
func String(s string) JSONValue { return JSONValue{Kind: KindString, text: s} }

// Object returns a JSON object with the given members in order.
func Object(members ...Member) JSONValue {
	return JSONValue{Kind: KindObject, Members: members}
}

// Array returns a JSON array with the given elements in order.
func Array(elements ...JSONValue) JSONValue {
	return JSONValue{Kind: KindArray, Elements: elements}
}

// M is shorthand for building an object member.
func M(key string, value JSONValue) Member { return Member{Key: key, Value: value} }

// IsScalar reports whether the value is a leaf (anything but object or array).
func (v JSONValue) IsScalar() bool {
	return v.Kind != KindObject && v.Kind != KindArray
}

// Text returns the leaf text of a scalar. The second result is false for
// null and for containers.
func (v JSONValue) Text() (string, bool) {
	switch v.Kind {
	case KindBool, KindNumber, KindString:
		return v.text, true
	default:
		return "", false
	}
}

// Document wraps the root of a parsed JSON input
type Document struct {
	Root JSONValue
}

// RootKind returns the kind of the document root
func (d Document) RootKind() Kind { return d.Root.Kind }

// Value is a table entry: a string that may be absent.
type Value struct {
	Str   string
	Valid bool
}

// Present returns a Value holding s.
func Present(s string) Value { return Value{Str: s, Valid: true} }

// Absent returns the missing Value.
func Absent() Value { return Value{} }

// String renders absent values as the empty string.
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	return v.Str
}

// Cell is a leaf datum tagged with its composed column label.
type Cell struct {
	Label string
	Value Value
}

// Row is the ordered list of cells collected for one record.
type Row struct {
	Cells []Cell
}

// Add appends a cell to the row
func (r *Row) Add(c Cell) { r.Cells = append(r.Cells, c) }

// Len returns the number of cells in the row
func (r Row) Len() int { return len(r.Cells) }

// Reset empties the row while keeping its capacity.
func (r *Row) Reset() { r.Cells = r.Cells[:0] }

// Clone returns a copy that shares no storage with r.
func (r Row) Clone() Row {
	cells := make([]Cell, len(r.Cells))
	copy(cells, r.Cells)
	return Row{Cells: cells}
}

// Table is the rectangular result of a conversion. Labels are unique and
// sorted; every entry of Rows has exactly len(Labels) values.
type Table struct {
	Labels []string
	Rows   [][]Value
}

// Len returns the number of data rows
func (t *Table) Len() int { return len(t.Rows) }

// Width returns the number of columns
func (t *Table) Width() int { return len(t.Labels) }

// Header returns a copy of the column labels.
func (t *Table) Header() []string {
	out := make([]string, len(t.Labels))
	copy(out, t.Labels)
	return out
}

// Records returns every row as strings, absent entries rendered empty.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = v.String()
		}
		out[i] = rec
	}
	return out
}

// Index returns the column position of label, or -1.
func (t *Table) Index(label string) int {
	lo, hi := 0, len(t.Labels)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if t.Labels[mid] < label {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(t.Labels) && t.Labels[lo] == label {
		return lo
	}
	return -1
}

// Get returns the entry at row i for label.
func (t *Table) Get(i int, label string) Value {
	j := t.Index(label)
	if j < 0 || i < 0 || i >= len(t.Rows) {
		return Absent()
	}
	return t.Rows[i][j]
}
