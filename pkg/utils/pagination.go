package utils

// CalculateTotalPages rounds the request and booking listings up to whole
// pages so a trailing partial page stays reachable.
func CalculateTotalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	pages := total / int64(perPage)
	if total%int64(perPage) != 0 {
		pages++
	}
	return int(pages)
}

// CalculateOffset maps a 1-based page onto a row offset. Pages below one
// read as the first page rather than producing a negative offset.
func CalculateOffset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}
