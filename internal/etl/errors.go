package etl

import "fmt"

// ConnectionError indicates a database was unreachable or a query against
// it failed outright. The run aborts without touching downstream state.
type ConnectionError struct {
	Target string // source, staging or warehouse
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s database: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SchemaError indicates an expected field or table was missing or
// malformed. The affected stage aborts rather than guessing or silently
// zero-filling identity or timestamp fields.
type SchemaError struct {
	Detail string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("schema error: %s", e.Detail)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// PartialLoadError reports which warehouse load step failed. Steps run
// inside one transaction, so a failed step leaves the warehouse unchanged;
// the next scheduled run retries the load in full.
type PartialLoadError struct {
	Step string
	Err  error
}

func (e *PartialLoadError) Error() string {
	return fmt.Sprintf("warehouse load failed at %s: %v", e.Step, e.Err)
}

func (e *PartialLoadError) Unwrap() error {
	return e.Err
}
