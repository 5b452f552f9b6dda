package domain

// MetaData carries either pagination counters or operation messages.
type MetaData map[string]any

// Envelope is the result shape of every core operation.
type Envelope[T any] struct {
	Data     T        `json:"data"`
	MetaData MetaData `json:"metaData"`
}

// Message builds metadata holding a single human-readable message.
func Message(msg string) MetaData {
	return MetaData{"message": msg}
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-based skip/limit pagination request.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies defaults and caps the limit.
func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Skip is the number of records before this page.
func (p Page) Skip() int64 {
	return int64(p.Limit) * int64(p.Page-1)
}

// TotalPages is ceil(total/limit).
func (p Page) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// Meta builds pagination metadata; totalKey names the counter (e.g. "totalRoles").
func (p Page) Meta(totalKey string, total int64) MetaData {
	return MetaData{
		totalKey:      total,
		"limit":       p.Limit,
		"totalPages":  p.TotalPages(total),
		"currentPage": p.Page,
	}
}
