package matching

const (
	DefaultPage = 1
	DefaultSize = 10
)

// Pageable is a 1-based page request. Invalid values fall back to the
// defaults rather than erroring, matching the API's lenient query
// parsing.
type Pageable struct {
	Page int
	Size int
}

func NewPageable(page, size int) Pageable {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	return Pageable{Page: page, Size: size}
}

func (p Pageable) Offset() int {
	return (p.Page - 1) * p.Size
}

func (p Pageable) Limit() int {
	return p.Size
}

// Page is one window of a result set together with the overall total.
type Page[T any] struct {
	Items    []T
	Total    int
	Pageable Pageable
}

func (p Page[T]) TotalPages() int {
	if p.Pageable.Size == 0 {
		return 0
	}
	return (p.Total + p.Pageable.Size - 1) / p.Pageable.Size
}

func (p Page[T]) HasNext() bool {
	return p.Pageable.Page < p.TotalPages()
}

func (p Page[T]) HasPrev() bool {
	return p.Pageable.Page > 1
}
