package source

// rowScanner is the part of *sqlx.Rows the cursor reads from
type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	SliceScan() ([]interface{}, error)
	Err() error
	Close() error
}

// Cursor is a forward-only view of a query result. Column names are read
// once when the cursor is created.
type Cursor struct {
	rows    rowScanner
	columns []string
	closed  bool
}

func newCursor(rows rowScanner) (*Cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	return &Cursor{rows: rows, columns: columns}, nil
}

// Columns returns the result column names in order
func (c *Cursor) Columns() []string {
	out := make([]string, len(c.columns))
	copy(out, c.columns)
	return out
}

// Next advances to the next row
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	return c.rows.Next()
}

// Values returns the current row as driver values
func (c *Cursor) Values() ([]interface{}, error) {
	return c.rows.SliceScan()
}

// Err returns the error that stopped iteration, if any
func (c *Cursor) Err() error {
	return c.rows.Err()
}

// Close releases the result set. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
