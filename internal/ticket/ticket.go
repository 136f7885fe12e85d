// Package ticket defines the core data model shared by every pipeline stage:
// the inbound ticket, the classification taxonomy, and the per-ticket State
// accumulator that stages read and write under the single-writer discipline.
package ticket

import (
	"strings"
	"time"
)

// Ticket is the normalized inbound support ticket.
type Ticket struct {
	ID            int64          `json:"id"`
	Subject       string         `json:"subject"`
	Text          string         `json:"text"`
	Tags          []string       `json:"tags"`
	Attachments   []Attachment   `json:"attachments,omitempty"`
	Conversations []Conversation `json:"conversations,omitempty"`
	RequesterID   int64          `json:"requester_id,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Attachment is one file attached to the ticket or a conversation.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
}

// Conversation is one reply in the ticket thread.
type Conversation struct {
	ID        int64        `json:"id"`
	Body      string       `json:"body"`
	Incoming  bool         `json:"incoming"`
	Private   bool         `json:"private"`
	CreatedAt time.Time    `json:"created_at"`
	Files     []Attachment `json:"attachments,omitempty"`
}

// HasAttachmentKind reports whether any attachment matches pred.
func (t *Ticket) HasAttachmentKind(pred func(Attachment) bool) bool {
	for _, a := range t.Attachments {
		if pred(a) {
			return true
		}
	}
	return false
}

// ImageURLs returns the URLs of image attachments, in order.
func (t *Ticket) ImageURLs() []string {
	var urls []string
	for _, a := range t.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			urls = append(urls, a.URL)
		}
	}
	return urls
}
