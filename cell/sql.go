package cell

import "fmt"

// SQL helpers store addresses in a signed 64-bit column (BIGINT). SQLValue
// flips the top bit so that signed order equals address order; every address
// and range bound must be written and compared in this form.

// SQLValue returns the BIGINT form of a.
func (a Address) SQLValue() int64 {
	return int64(uint64(a) ^ 1<<63)
}

// FromSQLValue reverses SQLValue.
func FromSQLValue(v int64) Address {
	return Address(uint64(v) ^ 1<<63)
}

// DescendantPredicate renders a SQL condition selecting rows whose address
// column holds a proper descendant of a. It expands to two range conditions
// on the prefix range, so it can use an ordinary B-tree index.
//
// At MaxLevel no descendant exists and the condition is always false.
func DescendantPredicate(column string, a Address) string {
	lo, hi, ok := a.Canonical().Range()
	if !ok {
		return "1 = 0"
	}
	return fmt.Sprintf("%s >= %d AND %s <= %d", column, lo.SQLValue(), column, hi.SQLValue())
}

// AncestorPredicate renders a SQL condition selecting rows whose cell is a
// proper ancestor of a, for tables that store each cell's descendant range
// in loColumn/hiColumn (see Address.Range).
func AncestorPredicate(loColumn, hiColumn string, a Address) string {
	v := a.Canonical().SQLValue()
	return fmt.Sprintf("%s <= %d AND %s >= %d", loColumn, v, hiColumn, v)
}
