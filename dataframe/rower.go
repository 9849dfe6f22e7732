package dataframe

// Rower visits the rows of a DataFrame and accumulates a result in its own
// state. Map and PMap never visit rows with the Rower they are given: they
// visit with clones, and join the clones once every worker has finished. R
// is the concrete Rower type itself:
//
//	type counter struct{ N int64 }
//	func (c *counter) Visit(row *Row) bool { c.N++; return true }
//	func (c *counter) Join(o *counter) *counter { c.N += o.N; return c }
//	func (c *counter) Clone() *counter { return &counter{} }
type Rower[R any] interface {
	// Visit is called once per row. Returning false stops the scan of the
	// current block of rows.
	Visit(row *Row) bool
	// Join combines another instance of this Rower into this one and returns
	// the combination.
	Join(other R) R
	// Clone returns an empty accumulator which shares this Rower's
	// configuration but none of its accumulated state. Joining a clone into
	// any Rower must leave that Rower's result unchanged.
	Clone() R
}

// Fielder visits the cells of a Row, one typed callback per cell
type Fielder interface {
	Start(rowIdx int)
	VisitInt(v int64)
	VisitFloat(v float64)
	VisitBool(v bool)
	VisitString(v string)
	VisitNull()
	Done()
}
