package blockloader

import (
	"fmt"
)

// SchemaMismatchError is returned by Normalize when the input cannot be mapped
// onto the schema.
type SchemaMismatchError struct {
	Missing []string
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("schema mismatch: %s: %v", e.Reason, e.Missing)
	}
	return "schema mismatch: " + e.Reason
}

// TypeCoercionError is returned by Coerce when a required field cannot be cast.
type TypeCoercionError struct {
	Field string
	Type  FieldType
	Row   int
	Value interface{}
	Err   error
}

func (e *TypeCoercionError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("cannot coerce row %d: required %s field %q is null", e.Row, e.Type, e.Field)
	}
	msg := fmt.Sprintf("cannot coerce row %d: field %q value %q is not a valid %s",
		e.Row, e.Field, fmt.Sprint(e.Value), e.Type)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeCoercionError) Unwrap() error {
	return e.Err
}

// StagingIOError is returned when the blob store does not confirm a write.
type StagingIOError struct {
	Location string
	Err      error
}

func (e *StagingIOError) Error() string {
	return fmt.Sprintf("failed to stage %s: %v", e.Location, e.Err)
}

func (e *StagingIOError) Unwrap() error {
	return e.Err
}

// LoadJobError is returned when the warehouse rejects or fails a load job.
type LoadJobError struct {
	JobID      string
	Diagnostic string
	Err        error
}

func (e *LoadJobError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("load job was rejected: %s", e.Diagnostic)
	}
	return fmt.Sprintf("load job %s failed: %s", e.JobID, e.Diagnostic)
}

func (e *LoadJobError) Unwrap() error {
	return e.Err
}

// LoadRowCountMismatchError means rows were lost between staging and loading.
type LoadRowCountMismatchError struct {
	Table  TableRef
	Staged int
	Loaded int64
}

func (e *LoadRowCountMismatchError) Error() string {
	return fmt.Sprintf("%s: staged %d rows but warehouse loaded %d", e.Table, e.Staged, e.Loaded)
}
