// Package attachment classifies ticket attachments by kind. The classifier
// fast paths and the agent context builder both depend on knowing whether a
// ticket carries documents (purchase order corroboration) or images (vision
// routing) without downloading anything.
package attachment

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

// Kind is the coarse attachment class used for routing.
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindOther    Kind = "other"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".heic": true, ".bmp": true,
}

var documentExts = map[string]bool{
	".doc": true, ".docx": true, ".txt": true, ".csv": true, ".xls": true, ".xlsx": true,
}

// KindOf classifies a by content type first, falling back to the file
// extension when the sender supplied a generic content type.
func KindOf(a ticket.Attachment) Kind {
	ct := strings.ToLower(a.ContentType)
	switch {
	case ct == "application/pdf":
		return KindPDF
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	}
	switch ext := strings.ToLower(filepath.Ext(a.Name)); {
	case ext == ".pdf":
		return KindPDF
	case imageExts[ext]:
		return KindImage
	case documentExts[ext]:
		return KindDocument
	}
	return KindOther
}

// IsPDF reports whether a is a PDF attachment.
func IsPDF(a ticket.Attachment) bool { return KindOf(a) == KindPDF }

// IsImage reports whether a is an image attachment.
func IsImage(a ticket.Attachment) bool { return KindOf(a) == KindImage }

// HasPDF reports whether the ticket carries at least one PDF.
func HasPDF(t *ticket.Ticket) bool { return t.HasAttachmentKind(IsPDF) }

// HasImages reports whether the ticket carries at least one image.
func HasImages(t *ticket.Ticket) bool { return t.HasAttachmentKind(IsImage) }

// Summarize renders a short per-attachment description for prompt context,
// e.g. "broken-part.jpg (image, 204800 bytes)".
func Summarize(a ticket.Attachment) string {
	var b strings.Builder
	b.WriteString(a.Name)
	b.WriteString(" (")
	b.WriteString(string(KindOf(a)))
	if a.Size > 0 {
		b.WriteString(", ")
		b.WriteString(sizeString(a.Size))
	}
	b.WriteString(")")
	return b.String()
}

func sizeString(n int64) string {
	const kb = 1024
	switch {
	case n >= kb*kb:
		return strconv.FormatInt(n/(kb*kb), 10) + "MB"
	case n >= kb:
		return strconv.FormatInt(n/kb, 10) + "KB"
	default:
		return strconv.FormatInt(n, 10) + "B"
	}
}
