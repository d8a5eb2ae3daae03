package core

// validation.go provides row-level validation before insertion.
//
// Each table kind has its own rule set. Rules accumulate messages instead of
// stopping at the first failure, so one row can report several problems.
// Reference rules query the database inside the caller's transaction, which
// means a row sees every row committed or staged before it.

import (
	"context"
	"fmt"
)

// ValidateRow checks row against the rules for kind and returns one
// human-readable message per problem. An empty result means the row is valid.
// The error is non-nil only when an existence query itself failed.
func ValidateRow(ctx context.Context, db DBTX, kind TableKind, row Row) ([]string, error) {
	c := &rowCheck{ctx: ctx, db: db, row: row}

	switch kind {
	case KindCategory:
		validateCategory(c)
	case KindProduct:
		validateProduct(c)
	case KindSupplier:
		validateParty(c, "supplier_id")
	case KindCustomer:
		validateParty(c, "customer_id")
	case KindWarehouse:
		validateWarehouse(c)
	case KindBatch:
		validateBatch(c)
	default:
		return nil, fmt.Errorf("unknown table kind %d", int(kind))
	}

	if c.err != nil {
		return nil, c.err
	}
	return c.problems, nil
}

func validateCategory(c *rowCheck) {
	c.require("category_id", "name")
	c.integer("category_id")
}

func validateProduct(c *rowCheck) {
	c.require("product_id", "name", "category_id", "unit")
	c.integer("product_id")
	c.reference("category_id", RefCategory)
	c.number("vat_rate")

	if _, ok := NormalizeActive(c.row["active"]); !ok {
		c.add("active must be Y or N")
	}
}

// validateParty covers suppliers and customers; their other columns pass
// through untyped.
func validateParty(c *rowCheck, idCol string) {
	c.require(idCol, "name")
	c.integer(idCol)
}

func validateWarehouse(c *rowCheck) {
	c.require("warehouse_id", "name")
	c.integer("warehouse_id")
}

func validateBatch(c *rowCheck) {
	c.require("batch_id", "product_id", "supplier_id", "warehouse_id",
		"received_date", "buy_price", "qty_received")
	c.integer("batch_id")
	c.reference("product_id", RefProduct)
	c.reference("supplier_id", RefSupplier)
	c.reference("warehouse_id", RefWarehouse)

	if _, err := ParseDate(c.row["received_date"]); err != nil {
		c.add("received_date must be YYYY-MM-DD")
	}
	if _, err := ParseDate(c.row["expire_date"]); err != nil {
		c.add("expire_date must be YYYY-MM-DD or empty")
	}

	c.nonNegative("buy_price")
	c.nonNegative("qty_received")
}

// rowCheck accumulates problems for one row.
// Format and reference rules skip empty cells; presence is reported once by
// require.
type rowCheck struct {
	ctx      context.Context
	db       DBTX
	row      Row
	problems []string
	err      error
}

func (c *rowCheck) add(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *rowCheck) require(cols ...string) {
	for _, col := range cols {
		if c.row.Value(col) == "" {
			c.add("%s is required", col)
		}
	}
}

// integer reports a non-empty cell that is not a whole number.
func (c *rowCheck) integer(col string) (int64, bool) {
	raw := c.row.Value(col)
	if raw == "" {
		return 0, false
	}
	n, err := ParseInt(raw)
	if err != nil {
		c.add("%s must be integer", col)
		return 0, false
	}
	return n, true
}

// reference requires an integer that exists in the referenced table.
func (c *rowCheck) reference(col string, ref Reference) {
	id, ok := c.integer(col)
	if !ok || c.err != nil {
		return
	}
	found, err := Exists(c.ctx, c.db, ref, id)
	if err != nil {
		c.err = err
		return
	}
	if !found {
		c.add("%s does not exist in %s", col, ref.Table())
	}
}

func (c *rowCheck) number(col string) {
	raw := c.row.Value(col)
	if raw == "" {
		return
	}
	if _, err := ParseDecimal(raw); err != nil {
		c.add("%s must be number", col)
	}
}

func (c *rowCheck) nonNegative(col string) {
	raw := c.row.Value(col)
	if raw == "" {
		return
	}
	d, err := ParseDecimal(raw)
	if err != nil {
		c.add("%s must be number", col)
		return
	}
	if d.IsNegative() {
		c.add("%s must be >= 0", col)
	}
}
