package document

import (
	"fmt"
	"path/filepath"

	"github.com/joseph-ayodele/docledger/constants"
)

// Page is one page of source text. The pipeline retains pages unmodified for
// the lifetime of a run: the same text feeds segmentation and verification.
type Page struct {
	Number int    `json:"pageNumber"`
	Text   string `json:"text"`
}

// ReadFile loads a document into ordered pages, choosing the reader by file
// extension. PDF pages map 1:1; plain text is paginated on form feeds.
func ReadFile(path string) ([]Page, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return readPDF(path)
	case constants.TXT:
		return readText(path)
	default:
		return nil, fmt.Errorf("unsupported document type %q", ext)
	}
}
