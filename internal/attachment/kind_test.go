package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		att  ticket.Attachment
		want Kind
	}{
		{"pdf by content type", ticket.Attachment{Name: "x", ContentType: "application/pdf"}, KindPDF},
		{"pdf by extension", ticket.Attachment{Name: "po-4412.pdf", ContentType: "application/octet-stream"}, KindPDF},
		{"jpeg", ticket.Attachment{Name: "a.bin", ContentType: "image/jpeg"}, KindImage},
		{"png by extension", ticket.Attachment{Name: "photo.PNG", ContentType: ""}, KindImage},
		{"docx", ticket.Attachment{Name: "notes.docx", ContentType: ""}, KindDocument},
		{"unknown", ticket.Attachment{Name: "blob.xyz", ContentType: "application/octet-stream"}, KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.att))
		})
	}
}

func TestHasPDFAndImages(t *testing.T) {
	tk := &ticket.Ticket{Attachments: []ticket.Attachment{
		{Name: "order.pdf", ContentType: "application/pdf"},
		{Name: "part.jpg", ContentType: "image/jpeg"},
	}}
	assert.True(t, HasPDF(tk))
	assert.True(t, HasImages(tk))
	assert.False(t, HasPDF(&ticket.Ticket{}))
}

func TestSummarize(t *testing.T) {
	s := Summarize(ticket.Attachment{Name: "broken-part.jpg", ContentType: "image/jpeg", Size: 200 * 1024})
	assert.Equal(t, "broken-part.jpg (image, 200KB)", s)

	s = Summarize(ticket.Attachment{Name: "order.pdf", ContentType: "application/pdf"})
	assert.Equal(t, "order.pdf (pdf)", s)
}
