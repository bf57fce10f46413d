package repositories

// Page selects a 1-based page of Limit rows.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of rows skipped before the page starts.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// slicePage cuts an in-memory result down to the requested page.
func slicePage[T any](rows []T, p Page) []T {
	start := p.Offset()
	if start >= len(rows) {
		return []T{}
	}
	end := start + p.Limit
	if p.Limit <= 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
