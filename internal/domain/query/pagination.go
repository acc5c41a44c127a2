package query

// Pagination carries optional limit/offset cursors for repository reads.
// Large catalog reads must always pass a bounded Limit.
type Pagination struct {
	Limit  *int
	Offset *int
	After  *uint
	Order  string // "asc" (default) or "desc"
}
