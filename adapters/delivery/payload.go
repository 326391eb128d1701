package exportdelivery

import (
	"strings"

	"github.com/goliatone/go-invoice-export/document"
	"github.com/goliatone/go-invoice-export/export"
)

// FileFor returns the downloadable file for an assembled artifact.
func FileFor(doc document.Document, artifact *export.Artifact) Attachment {
	file := Attachment{
		Filename:    export.Filename(doc.Number),
		ContentType: export.ContentType,
	}
	if artifact != nil {
		file.Data = artifact.Data
		if artifact.Filename != "" {
			file.Filename = artifact.Filename
		}
	}
	return file
}

// BuildSharePayload builds the share payload with the artifact attached.
func BuildSharePayload(doc document.Document, artifact *export.Artifact) SharePayload {
	file := FileFor(doc, artifact)
	return SharePayload{
		Title:      "Invoice " + strings.TrimSpace(doc.Number),
		Text:       "Invoice from " + strings.TrimSpace(doc.Issuer.Name),
		Attachment: &file,
	}
}

// TextOnly drops the attachment.
func (p SharePayload) TextOnly() SharePayload {
	p.Attachment = nil
	return p
}
