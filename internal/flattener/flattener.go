// Package flattener turns a parsed JSON tree into a sequence of rows whose
// cells are labelled with the path that led to each leaf.
//
// A root object is one record. A root array yields one record per element:
// object elements contribute their fields directly, any other element
// contributes under its bare index (or a shared value label, see
// ScalarArrayPolicy). Below the record level, object keys and array indices
// are joined with "/".
package flattener

import (
	"strconv"

	"github.com/mcncl/jsontab/internal/models"
)

// Separator joins path segments below the record level.
const Separator = "/"

// DefaultValueLabel is the column used by ScalarArrayValue when no label is configured.
const DefaultValueLabel = "value"

// ScalarArrayPolicy decides how non-object elements of a root array are labelled.
type ScalarArrayPolicy string

const (
	// ScalarArrayIndex labels each element by its index, giving one column per position.
	ScalarArrayIndex ScalarArrayPolicy = "index"
	// ScalarArrayValue puts every element under a single shared column.
	ScalarArrayValue ScalarArrayPolicy = "value"
)

// Policies lists the accepted ScalarArrayPolicy values
func Policies() []ScalarArrayPolicy {
	return []ScalarArrayPolicy{ScalarArrayIndex, ScalarArrayValue}
}

// Options configures a Flattener.
type Options struct {
	ScalarArray ScalarArrayPolicy
	ValueLabel  string
}

// Flattener walks JSON values into rows. It holds no per-call state and is
// safe for concurrent use.
type Flattener struct {
	opts Options
}

// New creates a Flattener, filling unset options with defaults.
func New(opts Options) *Flattener {
	if opts.ScalarArray == "" {
		opts.ScalarArray = ScalarArrayIndex
	}
	if opts.ValueLabel == "" {
		opts.ValueLabel = DefaultValueLabel
	}
	return &Flattener{opts: opts}
}

// Flatten walks root depth-first and returns the sealed rows in emission order.
func Flatten(root models.JSONValue) []models.Row {
	return New(Options{}).Flatten(root)
}

// Flatten walks root depth-first and returns the sealed rows in emission order.
func (f *Flattener) Flatten(root models.JSONValue) []models.Row {
	w := &walker{}

	switch root.Kind {
	case models.KindArray:
		for i, el := range root.Elements {
			if el.Kind == models.KindObject {
				// sealed by visit once the object is done
				w.visit(el, 1, "")
				continue
			}
			w.visit(el, 2, f.elementLabel(i))
			w.seal()
		}
	default:
		w.visit(root, 1, "")
	}

	// a bare scalar root is still sitting in the accumulator
	if w.acc.Len() > 0 {
		w.seal()
	}
	return w.rows
}

func (f *Flattener) elementLabel(i int) string {
	if f.opts.ScalarArray == ScalarArrayValue {
		return f.opts.ValueLabel
	}
	return ArrayLabel(0, "", i)
}

// walker carries the accumulator and output of a single Flatten call.
type walker struct {
	acc  models.Row
	rows []models.Row
}

func (w *walker) visit(v models.JSONValue, level int, label string) {
	switch v.Kind {
	case models.KindObject:
		for _, m := range v.Members {
			w.visit(m.Value, level+1, ObjectLabel(level, label, m.Key))
		}
		if level == 1 {
			w.seal()
		}
	case models.KindArray:
		for i, el := range v.Elements {
			w.visit(el, level+1, ArrayLabel(level, label, i))
		}
	default:
		value := models.Absent()
		if text, ok := v.Text(); ok {
			value = models.Present(text)
		}
		w.acc.Add(models.Cell{Label: label, Value: value})
	}
}

// seal moves a copy of the accumulator to the output and clears it.
func (w *walker) seal() {
	w.rows = append(w.rows, w.acc.Clone())
	w.acc.Reset()
}

// ObjectLabel composes the label of an object member found at level.
func ObjectLabel(level int, prefix, key string) string {
	if level > 1 {
		return prefix + Separator + key
	}
	return prefix + key
}

// ArrayLabel composes the label of an array element found at level. At the
// record level and above, the index is appended without a separator.
func ArrayLabel(level int, prefix string, index int) string {
	if level > 1 {
		return prefix + Separator + strconv.Itoa(index)
	}
	return prefix + strconv.Itoa(index)
}
