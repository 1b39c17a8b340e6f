package filter

// Query-string parameter names recognized for pagination. They share the
// field whitelist with record fields at the HTTP layer.
const (
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

// MaxPageSize caps the page size a caller may request.
const MaxPageSize = 1000

// Page describes optional pagination for a filtered read. Number is
// 0-indexed. The zero value means "no pagination": the full result set is
// returned and no LIMIT/OFFSET clause is emitted.
type Page struct {
	Number int
	Size   int
}

// NewPage builds a Page, clamping negative numbers to 0 and the size to
// MaxPageSize.
func NewPage(number, size int) Page {
	if number < 0 {
		number = 0
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Enabled reports whether pagination applies. A Page with a non-positive
// size is treated as unpaginated.
func (p Page) Enabled() bool {
	return p.Size > 0
}

// Limit returns the row limit for the page.
func (p Page) Limit() int {
	return p.Size
}

// Offset returns the row offset for the page: Number * Size.
func (p Page) Offset() int {
	return p.Number * p.Size
}
