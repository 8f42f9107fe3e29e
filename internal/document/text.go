package document

import (
	"os"
	"strings"
)

// readText loads a plain-text document, paginating on form feeds. A file
// without form feeds is a single page. Page text is kept byte-for-byte as
// read; verification depends on it staying unmodified.
func readText(path string) ([]Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return PaginateText(string(b)), nil
}

// PaginateText splits raw text into pages on form-feed characters.
// Empty input yields zero pages.
func PaginateText(text string) []Page {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages
}
