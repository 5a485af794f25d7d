// Package frame provides a small column-oriented table used to carry
// state school data between the mapper, NCES joins, and reporting.
// Columns are typed (string, int, float, bool) and nullable.
package frame

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the value type of a column.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
)

// String returns the config-facing name of the kind.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a dtype name as used in mapping configs.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text":
		return String, nil
	case "int", "int64", "integer":
		return Int, nil
	case "float", "float64", "number":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	}
	return String, fmt.Errorf("unknown dtype %q", s)
}

// Column is a typed, nullable column. Cells hold string, int64, float64
// or bool per the column kind; nil marks a null.
type Column struct {
	Name string
	Kind Kind
	data []any
}

// NewColumn creates a column pre-filled with n nulls.
func NewColumn(name string, kind Kind, n int) *Column {
	return &Column{Name: name, Kind: kind, data: make([]any, n)}
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.data) }

// Value returns the cell at i and whether it is non-null.
func (c *Column) Value(i int) (any, bool) {
	v := c.data[i]
	return v, v != nil
}

// IsNull reports whether the cell at i is null.
func (c *Column) IsNull(i int) bool { return c.data[i] == nil }

// Append adds a value, checking it against the column kind.
func (c *Column) Append(v any) error {
	if v == nil {
		c.data = append(c.data, nil)
		return nil
	}
	if err := checkKind(c.Kind, v); err != nil {
		return fmt.Errorf("column %s: %w", c.Name, err)
	}
	c.data = append(c.data, v)
	return nil
}

// AppendNull adds a null cell.
func (c *Column) AppendNull() { c.data = append(c.data, nil) }

// Set replaces the cell at i, checking the kind.
func (c *Column) Set(i int, v any) error {
	if v != nil {
		if err := checkKind(c.Kind, v); err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
	}
	c.data[i] = v
	return nil
}

// Fill sets every cell to v.
func (c *Column) Fill(v any) error {
	for i := range c.data {
		if err := c.Set(i, v); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(k Kind, v any) error {
	ok := false
	switch k {
	case String:
		_, ok = v.(string)
	case Int:
		_, ok = v.(int64)
	case Float:
		_, ok = v.(float64)
	case Bool:
		_, ok = v.(bool)
	}
	if !ok {
		return fmt.Errorf("value %v (%T) does not match kind %s", v, v, k)
	}
	return nil
}

// Parse converts a raw cell string into a typed value for the kind.
// Integer columns accept float renderings of whole numbers ("12.0"),
// which spreadsheets produce for ID columns.
func Parse(kind Kind, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	switch kind {
	case String:
		return raw, nil
	case Int:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != float64(int64(f)) {
			return nil, fmt.Errorf("cannot parse %q as int", raw)
		}
		return int64(f), nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot parse %q as float", raw)
		}
		return f, nil
	case Bool:
		switch strings.ToLower(s) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
		return nil, fmt.Errorf("cannot parse %q as bool", raw)
	}
	return nil, fmt.Errorf("unknown kind %v", kind)
}

// FormatValue renders a typed cell for CSV output and join keys.
// Nulls render as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// Frame is an ordered collection of equal-length columns.
type Frame struct {
	cols  []*Column
	index map[string]int
}

// New builds a frame from columns, which must have unique names and
// equal lengths.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := f.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// HasColumn reports whether the frame contains the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// AddColumn appends a column to the frame.
func (f *Frame) AddColumn(c *Column) error {
	if _, dup := f.index[c.Name]; dup {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(f.cols) > 0 && c.Len() != f.Len() {
		return fmt.Errorf("column %q has %d rows, frame has %d", c.Name, c.Len(), f.Len())
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// Select returns a new frame holding the named columns in the given
// order. The columns are shared, not copied.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := &Frame{index: make(map[string]int, len(names))}
	for _, name := range names {
		c, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("no column %q", name)
		}
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Filter returns a new frame with only the rows for which keep is true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols))}
	for _, c := range f.cols {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		out.index[nc.Name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}
	for row := 0; row < f.Len(); row++ {
		if !keep(row) {
			continue
		}
		for i, c := range f.cols {
			out.cols[i].data = append(out.cols[i].data, c.data[row])
		}
	}
	return out
}

// DropDuplicates returns a new frame with exact duplicate rows removed,
// keeping the first occurrence.
func (f *Frame) DropDuplicates() *Frame {
	seen := make(map[string]struct{}, f.Len())
	return f.Filter(func(row int) bool {
		var sb strings.Builder
		for _, c := range f.cols {
			if c.data[row] == nil {
				sb.WriteString("\x00")
			} else {
				sb.WriteString(FormatValue(c.data[row]))
			}
			sb.WriteString("\x1f")
		}
		key := sb.String()
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
}

// LeftJoin joins right onto left by string-key equality, with optional
// key transforms applied to the formatted key values. Every left row is
// retained; a left row with several right matches expands into one row
// per match, and an unmatched row carries nulls in the right columns.
func LeftJoin(left, right *Frame, leftOn, rightOn string, leftFn, rightFn func(string) string) (*Frame, error) {
	lk, ok := left.Column(leftOn)
	if !ok {
		return nil, fmt.Errorf("left join: no column %q", leftOn)
	}
	rk, ok := right.Column(rightOn)
	if !ok {
		return nil, fmt.Errorf("left join: no column %q", rightOn)
	}
	for _, name := range right.Columns() {
		if left.HasColumn(name) {
			return nil, fmt.Errorf("left join: column %q exists on both sides", name)
		}
	}
	if leftFn == nil {
		leftFn = func(s string) string { return s }
	}
	if rightFn == nil {
		rightFn = func(s string) string { return s }
	}

	matches := make(map[string][]int, right.Len())
	for row := 0; row < right.Len(); row++ {
		if rk.IsNull(row) {
			continue
		}
		key := rightFn(FormatValue(rk.data[row]))
		matches[key] = append(matches[key], row)
	}

	out := &Frame{index: make(map[string]int, len(left.cols)+len(right.cols))}
	for _, c := range append(append([]*Column{}, left.cols...), right.cols...) {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		out.index[nc.Name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}

	nl := len(left.cols)
	appendRow := func(lrow, rrow int) {
		for i, c := range left.cols {
			out.cols[i].data = append(out.cols[i].data, c.data[lrow])
		}
		for i, c := range right.cols {
			if rrow < 0 {
				out.cols[nl+i].data = append(out.cols[nl+i].data, nil)
			} else {
				out.cols[nl+i].data = append(out.cols[nl+i].data, c.data[rrow])
			}
		}
	}

	for row := 0; row < left.Len(); row++ {
		var rrows []int
		if !lk.IsNull(row) {
			rrows = matches[leftFn(FormatValue(lk.data[row]))]
		}
		if len(rrows) == 0 {
			appendRow(row, -1)
			continue
		}
		for _, rrow := range rrows {
			appendRow(row, rrow)
		}
	}
	return out, nil
}

// less orders two non-null values of the same kind.
func less(k Kind, a, b any) bool {
	switch k {
	case String:
		return a.(string) < b.(string)
	case Int:
		return a.(int64) < b.(int64)
	case Float:
		return a.(float64) < b.(float64)
	case Bool:
		return !a.(bool) && b.(bool)
	}
	return false
}

// sortValues orders values in place by the kind's natural order.
func sortValues(k Kind, vs []any) {
	sort.Slice(vs, func(i, j int) bool { return less(k, vs[i], vs[j]) })
}
