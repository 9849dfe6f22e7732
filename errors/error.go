package errors

import (
	"fmt"
	"time"
)

// TypeMismatchError occurs when a value of one DataType is written to, or read from, a column of another
type TypeMismatchError struct {
	Expected string
	Actual   string
}

// Error returns a textual representation of this TypeMismatchError
func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("Type mismatch: column is %s, value is %s", e.Expected, e.Actual)
}

// ColIndexOutOfBoundsError occurs when a column index is not within a Schema
type ColIndexOutOfBoundsError struct {
	Index int
	Width int
}

// Error returns a textual representation of this ColIndexOutOfBoundsError
func (e ColIndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("Column index %d is out of bounds for width %d", e.Index, e.Width)
}

// RowIndexOutOfBoundsError occurs when a row index is not within a DataFrame
type RowIndexOutOfBoundsError struct {
	Index  int
	Length int
}

// Error returns a textual representation of this RowIndexOutOfBoundsError
func (e RowIndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("Row index %d is out of bounds for length %d", e.Index, e.Length)
}

// NameAlreadyExistsError occurs when a column or row name is added to a Schema twice
type NameAlreadyExistsError struct{ Name string }

// Error returns a textual representation of this NameAlreadyExistsError
func (e NameAlreadyExistsError) Error() string {
	return fmt.Sprintf("Name %s already exists in schema", e.Name)
}

// IncompatibleRowError occurs when a Row's types do not match an expected Schema
type IncompatibleRowError struct{}

// Error returns a textual representation of this IncompatibleRowError
func (e IncompatibleRowError) Error() string {
	return "Row is not compatible with Schema"
}

// NotSetError occurs when an optional value is read before it was set
type NotSetError struct{ What string }

// Error returns a textual representation of this NotSetError
func (e NotSetError) Error() string {
	return fmt.Sprintf("%s is not set", e.What)
}

// PartitionNotFoundError occurs when no DataFrame is stored under a key
type PartitionNotFoundError struct {
	Namespace string
	NodeID    int
}

// Error returns a textual representation of this PartitionNotFoundError
func (e PartitionNotFoundError) Error() string {
	return fmt.Sprintf("Partition %s/%d not found", e.Namespace, e.NodeID)
}

// MalformedBlobError occurs when an inbound blob cannot be decoded
type MalformedBlobError struct{ Reason string }

// Error returns a textual representation of this MalformedBlobError
func (e MalformedBlobError) Error() string {
	return fmt.Sprintf("Malformed blob: %s", e.Reason)
}

// NeighborUnreachableError occurs when a bounded wait for a blob from a neighboring node expires
type NeighborUnreachableError struct {
	NodeID int
	Wait   time.Duration
}

// Error returns a textual representation of this NeighborUnreachableError
func (e NeighborUnreachableError) Error() string {
	return fmt.Sprintf("No blob from node %d within %s", e.NodeID, e.Wait)
}

// NodeIndexOutOfBoundsError occurs when a node id is not within [1, numNodes]
type NodeIndexOutOfBoundsError struct {
	NodeID   int
	NumNodes int
}

// Error returns a textual representation of this NodeIndexOutOfBoundsError
func (e NodeIndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("Node id %d is not within [1, %d]", e.NodeID, e.NumNodes)
}
