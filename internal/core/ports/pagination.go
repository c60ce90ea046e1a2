package ports

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one slice of a listing plus the numbers needed to fetch the rest.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NormalizePage clamps a 1-based page and a page size to sane bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset is the number of rows to skip for page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

func NewPage[T any](items []T, total int64, page, limit int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
