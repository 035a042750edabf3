package snmp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table is the structured form of a walked SNMP table: row index to
// column to value. Row indexes may span multiple sub-identifiers and are
// stored as dotted composite keys. The table service is pure; it performs
// no I/O.
type Table struct {
	Base OID
	Rows map[string]map[uint32]interface{}
}

// BuildTable converts flat (oid, value) pairs into rows and columns.
// For a table base T, each OID is laid out T ++ [entry, column, index...];
// pairs outside the base are ignored.
func BuildTable(vars []Variable, base OID) *Table {
	t := &Table{
		Base: base.Copy(),
		Rows: make(map[string]map[uint32]interface{}),
	}

	for _, v := range vars {
		suffix := v.OID.Suffix(base)
		// Need entry, column, and at least one index component.
		if len(suffix) < 3 {
			continue
		}
		column := suffix[1]
		index := OID(suffix[2:]).String()

		row, ok := t.Rows[index]
		if !ok {
			row = make(map[uint32]interface{})
			t.Rows[index] = row
		}
		row[column] = v.Value
	}

	return t
}

// Record is one table row as a named map. The synthetic "index" field
// carries the row index.
type Record map[string]interface{}

// ToRecords renders the table as a list of records using the given
// column-number-to-name mapping. Unnamed columns appear under their
// numeric form. Records are ordered by row index.
func (t *Table) ToRecords(names map[uint32]string) []Record {
	records := make([]Record, 0, len(t.Rows))

	for _, index := range t.SortedIndexes() {
		row := t.Rows[index]
		rec := Record{"index": index}
		for col, value := range row {
			name, ok := names[col]
			if !ok {
				name = strconv.FormatUint(uint64(col), 10)
			}
			rec[name] = value
		}
		records = append(records, rec)
	}

	return records
}

// Column extracts one column keyed by row index.
func (t *Table) Column(col uint32) map[string]interface{} {
	out := make(map[string]interface{})
	for index, row := range t.Rows {
		if value, ok := row[col]; ok {
			out[index] = value
		}
	}
	return out
}

// FilterRows returns a new table keeping only rows the predicate accepts.
func (t *Table) FilterRows(pred func(index string, row map[uint32]interface{}) bool) *Table {
	out := &Table{
		Base: t.Base.Copy(),
		Rows: make(map[string]map[uint32]interface{}),
	}
	for index, row := range t.Rows {
		if pred(index, row) {
			out.Rows[index] = row
		}
	}
	return out
}

// Join merges two tables on row index. An inner join keeps only rows
// present in both; an outer join keeps every row. On column collision the
// right-hand table wins.
func (t *Table) Join(other *Table, outer bool) *Table {
	out := &Table{
		Base: t.Base.Copy(),
		Rows: make(map[string]map[uint32]interface{}),
	}

	for index, row := range t.Rows {
		orow, ok := other.Rows[index]
		if !ok && !outer {
			continue
		}
		merged := make(map[uint32]interface{}, len(row)+len(orow))
		for col, v := range row {
			merged[col] = v
		}
		for col, v := range orow {
			merged[col] = v
		}
		out.Rows[index] = merged
	}

	if outer {
		for index, orow := range other.Rows {
			if _, ok := t.Rows[index]; ok {
				continue
			}
			merged := make(map[uint32]interface{}, len(orow))
			for col, v := range orow {
				merged[col] = v
			}
			out.Rows[index] = merged
		}
	}

	return out
}

// AggOp is a column aggregation operator.
type AggOp int

const (
	AggSum AggOp = iota
	AggAvg
	AggMin
	AggMax
	AggCount
)

// Aggregate reduces a numeric column. Non-numeric cells are skipped. For
// AggCount the result is the number of rows carrying the column.
func (t *Table) Aggregate(col uint32, op AggOp) (float64, error) {
	var values []float64
	for _, row := range t.Rows {
		v, ok := row[col]
		if !ok {
			continue
		}
		if op == AggCount {
			values = append(values, 1)
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		values = append(values, f)
	}

	if len(values) == 0 {
		if op == AggCount {
			return 0, nil
		}
		return 0, fmt.Errorf("snmp: no numeric values in column %d", col)
	}

	switch op {
	case AggSum, AggCount:
		sum := 0.0
		for _, f := range values {
			sum += f
		}
		return sum, nil
	case AggAvg:
		sum := 0.0
		for _, f := range values {
			sum += f
		}
		return sum / float64(len(values)), nil
	case AggMin:
		min := values[0]
		for _, f := range values[1:] {
			if f < min {
				min = f
			}
		}
		return min, nil
	case AggMax:
		max := values[0]
		for _, f := range values[1:] {
			if f > max {
				max = f
			}
		}
		return max, nil
	default:
		return 0, fmt.Errorf("snmp: unknown aggregation %d", op)
	}
}

// CountEqual counts rows whose column equals the given value, compared by
// string form.
func (t *Table) CountEqual(col uint32, value interface{}) int {
	want := fmt.Sprintf("%v", value)
	count := 0
	for _, row := range t.Rows {
		if v, ok := row[col]; ok && fmt.Sprintf("%v", v) == want {
			count++
		}
	}
	return count
}

// SortedIndexes returns row indexes ordered by their numeric components.
func (t *Table) SortedIndexes() []string {
	indexes := make([]string, 0, len(t.Rows))
	for index := range t.Rows {
		indexes = append(indexes, index)
	}
	sort.Slice(indexes, func(i, j int) bool {
		return compareIndex(indexes[i], indexes[j]) < 0
	})
	return indexes
}

// SortRows returns row indexes ordered by one or more column values,
// falling back to index order for ties.
func (t *Table) SortRows(cols ...uint32) []string {
	indexes := t.SortedIndexes()
	if len(cols) == 0 {
		return indexes
	}

	sort.SliceStable(indexes, func(i, j int) bool {
		a, b := t.Rows[indexes[i]], t.Rows[indexes[j]]
		for _, col := range cols {
			c := compareCell(a[col], b[col])
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return indexes
}

// compareIndex orders dotted composite indexes numerically component by
// component.
func compareIndex(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		an, aerr := strconv.ParseUint(as[i], 10, 32)
		bn, berr := strconv.ParseUint(bs[i], 10, 32)
		if aerr == nil && berr == nil {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

// compareCell orders two cell values, numerically when both are numeric.
func compareCell(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
