// Package core provides the business logic for the inventory CSV loader.
//
// The loader reads a fixed set of delimited files (categories, products,
// suppliers, customers, warehouses, product batches), validates each row and
// inserts the valid ones into PostgreSQL, writing an audit trail as it goes.
//
// # Pipeline
//
//	Scheduler.Run -> Runner.RunOnce -> Loader.LoadFile
//	    -> ValidateRow (Exists) -> bindValues -> INSERT -> AuditLogger
//
// [Scheduler] runs a cycle immediately and then once per schedule interval.
// [Runner] walks [DefaultJobs] in order and skips files that are not present.
// [Loader] handles one file inside one transaction.
//
// # Table Kinds
//
// [TableKind] is a closed set. Each kind has a [TableDefinition] naming its
// table, input file and expected columns with their bind types:
//
//	KindProduct.Definition().Columns()
//	// [product_id name category_id unit vat_rate active]
//
// # Error Handling
//
//   - Validation problems are strings collected per row; the row is counted
//     bad, logged, audited as ROW_INVALID and skipped.
//   - Audit writes are best effort: failures become warnings.
//   - A database failure on an otherwise valid row is an [*InsertError]. The
//     loader commits everything staged so far (including the DB_ERROR audit
//     record), then returns the error, which also ends the cycle.
//
// # Idempotence
//
// Loads are insert-only. Re-running a file that was already loaded either
// fails on the first duplicate key or inserts duplicate rows, depending on
// the table constraints.
package core
