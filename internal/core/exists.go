package core

import (
	"context"
	"fmt"
)

// Reference names a table an identifier column may point at.
type Reference int

const (
	RefCategory Reference = iota
	RefProduct
	RefSupplier
	RefWarehouse
)

type referenceTarget struct {
	table  string
	column string
	query  string
}

// referenceTargets is the only source of table and column names that reach
// the existence query. The identifier itself is always a bound parameter.
var referenceTargets = map[Reference]referenceTarget{
	RefCategory:  newReferenceTarget("p_categories", "category_id"),
	RefProduct:   newReferenceTarget("p_products", "product_id"),
	RefSupplier:  newReferenceTarget("p_suppliers", "supplier_id"),
	RefWarehouse: newReferenceTarget("p_warehouses", "warehouse_id"),
}

func newReferenceTarget(table, column string) referenceTarget {
	return referenceTarget{
		table:  table,
		column: column,
		query:  fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", table, column),
	}
}

// Table returns the referenced table name.
func (r Reference) Table() string {
	return referenceTargets[r].table
}

// Exists reports whether id is present in the referenced table.
// Every call is one round trip; results are not cached.
func Exists(ctx context.Context, db DBTX, ref Reference, id int64) (bool, error) {
	target, ok := referenceTargets[ref]
	if !ok {
		return false, fmt.Errorf("unknown reference %d", int(ref))
	}

	var n int64
	if err := db.QueryRow(ctx, target.query, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check %s.%s=%d: %w", target.table, target.column, id, err)
	}
	return n > 0, nil
}
