package core

import (
	"fmt"
	"strings"
)

// TableKind identifies one of the target tables the loader supports.
type TableKind int

const (
	KindCategory TableKind = iota
	KindProduct
	KindSupplier
	KindCustomer
	KindWarehouse
	KindBatch
)

// FieldType decides how a validated cell is bound to the insert.
type FieldType int

const (
	FieldText    FieldType = iota // empty binds NULL
	FieldID                       // integer identifier
	FieldDate                     // YYYY-MM-DD
	FieldDecimal                  // exact decimal
	FieldFlag                     // Y/N, empty defaults to Y
)

// FieldSpec describes one expected column of an input file.
type FieldSpec struct {
	Name string // column header and database column
	Type FieldType
}

// TableDefinition contains everything needed to load one table.
type TableDefinition struct {
	Kind   TableKind
	Table  string // database table
	File   string // input file name
	Fields []FieldSpec
}

var definitions = []TableDefinition{
	{
		Kind:  KindCategory,
		Table: "p_categories",
		File:  "p_categories.csv",
		Fields: []FieldSpec{
			{Name: "category_id", Type: FieldID},
			{Name: "name", Type: FieldText},
		},
	},
	{
		Kind:  KindProduct,
		Table: "p_products",
		File:  "p_products.csv",
		Fields: []FieldSpec{
			{Name: "product_id", Type: FieldID},
			{Name: "name", Type: FieldText},
			{Name: "category_id", Type: FieldID},
			{Name: "unit", Type: FieldText},
			{Name: "vat_rate", Type: FieldDecimal},
			{Name: "active", Type: FieldFlag},
		},
	},
	{
		Kind:  KindSupplier,
		Table: "p_suppliers",
		File:  "p_suppliers.csv",
		Fields: []FieldSpec{
			{Name: "supplier_id", Type: FieldID},
			{Name: "name", Type: FieldText},
			{Name: "nip", Type: FieldText},
			{Name: "phone", Type: FieldText},
			{Name: "email", Type: FieldText},
			{Name: "active", Type: FieldFlag},
		},
	},
	{
		Kind:  KindCustomer,
		Table: "p_customers",
		File:  "p_customers.csv",
		Fields: []FieldSpec{
			{Name: "customer_id", Type: FieldID},
			{Name: "name", Type: FieldText},
			{Name: "nip", Type: FieldText},
			{Name: "phone", Type: FieldText},
			{Name: "email", Type: FieldText},
			{Name: "active", Type: FieldFlag},
		},
	},
	{
		Kind:  KindWarehouse,
		Table: "p_warehouses",
		File:  "p_warehouses.csv",
		Fields: []FieldSpec{
			{Name: "warehouse_id", Type: FieldID},
			{Name: "name", Type: FieldText},
			{Name: "city", Type: FieldText},
		},
	},
	{
		Kind:  KindBatch,
		Table: "p_product_batches",
		File:  "p_product_batches.csv",
		Fields: []FieldSpec{
			{Name: "batch_id", Type: FieldID},
			{Name: "product_id", Type: FieldID},
			{Name: "supplier_id", Type: FieldID},
			{Name: "warehouse_id", Type: FieldID},
			{Name: "batch_code", Type: FieldText},
			{Name: "received_date", Type: FieldDate},
			{Name: "expire_date", Type: FieldDate},
			{Name: "buy_price", Type: FieldDecimal},
			{Name: "qty_received", Type: FieldDecimal},
		},
	},
}

// Kinds returns every table kind in load order.
func Kinds() []TableKind {
	kinds := make([]TableKind, len(definitions))
	for i, def := range definitions {
		kinds[i] = def.Kind
	}
	return kinds
}

// Valid reports whether k is one of the declared kinds.
func (k TableKind) Valid() bool {
	return k >= 0 && int(k) < len(definitions)
}

// Definition returns the table definition for k.
// Panics on an undeclared kind.
func (k TableKind) Definition() TableDefinition {
	if !k.Valid() {
		panic(fmt.Sprintf("unknown table kind %d", int(k)))
	}
	return definitions[k]
}

// String returns the upper-case table name used in logs and audit details.
func (k TableKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("TableKind(%d)", int(k))
	}
	return strings.ToUpper(definitions[k].Table)
}

// Columns returns the expected column names in insert order.
func (d TableDefinition) Columns() []string {
	cols := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		cols[i] = f.Name
	}
	return cols
}

// InsertSQL builds the single-row insert for exactly the expected columns.
func (d TableDefinition) InsertSQL() string {
	placeholders := make([]string, len(d.Fields))
	for i := range d.Fields {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Table, strings.Join(d.Columns(), ", "), strings.Join(placeholders, ", "))
}
