package export

import (
	"strings"
)

// DefaultFilenameBase is used when a document has no number.
const DefaultFilenameBase = "invoice"

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", "\x00", "")

// Filename returns "<number>.pdf", falling back to "invoice.pdf" for an empty number.
func Filename(number string) string {
	name := strings.TrimSpace(filenameReplacer.Replace(number))
	if name == "" || name == "." || name == ".." {
		name = DefaultFilenameBase
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// Title returns the document title used for metadata and share payloads.
func Title(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return "Invoice"
	}
	return "Invoice " + number
}
