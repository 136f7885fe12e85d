package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/agent/tools"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

func TestBuildMessagesStructure(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(&fakeTool{name: "product_search"})
	reg.Register(&fakeTool{name: "ticket_facts"})

	st := newTestState()
	st.Classification = &ticket.Classification{Category: ticket.CategoryWarrantyClaim}

	msgs := buildMessages(st, reg, 0, 15)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)

	assert.Contains(t, msgs[0].Content, "product_search")
	assert.Contains(t, msgs[0].Content, "ticket_facts")
	assert.Contains(t, msgs[0].Content, `"action": "finish"`)

	assert.Contains(t, msgs[1].Content, "Leaky faucet")
	assert.Contains(t, msgs[1].Content, string(ticket.CategoryWarrantyClaim))
	assert.Contains(t, msgs[1].Content, "Iteration 1 of 15")
}

func TestSystemPromptCarriesConstraintGuidance(t *testing.T) {
	st := newTestState()
	st.Constraints = &ticket.ConstraintResult{
		RequiredAsks: []string{"proof of purchase", "shipping address"},
		MustNotAsk:   []string{"order number"},
	}

	content := systemPrompt(tools.NewRegistry(), st.Constraints)
	assert.Contains(t, content, "proof of purchase, shipping address")
	assert.Contains(t, content, "Never ask for: order number")
}

func TestUserPromptTruncatesBody(t *testing.T) {
	st := newTestState()
	st.Ticket.Text = strings.Repeat("a", 3000)

	content := userPrompt(st, 0, 15)
	assert.Less(t, strings.Count(content, "a"), 2100)
	assert.Contains(t, content, "...")
}

func TestUserPromptIterationWarnings(t *testing.T) {
	st := newTestState()

	assert.NotContains(t, userPrompt(st, 10, 15), "Wrap up")
	assert.Contains(t, userPrompt(st, 13, 15), "Wrap up")
	assert.Contains(t, userPrompt(st, 14, 15), "final iteration")
}

func TestUserPromptBoundsTranscript(t *testing.T) {
	st := newTestState()
	for i := 0; i < 8; i++ {
		st.RecordStep(ticket.AgentStep{
			Iteration:   i,
			Thought:     "thinking",
			Action:      "product_search",
			Observation: "nothing found",
		})
	}

	content := userPrompt(st, 8, 15)
	assert.NotContains(t, content, "1. thought")
	assert.Contains(t, content, "4. thought")
	assert.Contains(t, content, "8. thought")
}

func TestUserPromptListsImagesAndAttachments(t *testing.T) {
	st := newTestState()
	st.Ticket.Attachments = []ticket.Attachment{
		{Name: "photo.jpg", ContentType: "image/jpeg", URL: "https://cdn/photo.jpg", Size: 1024},
		{Name: "receipt.pdf", ContentType: "application/pdf", URL: "https://cdn/receipt.pdf", Size: 2048},
	}

	content := userPrompt(st, 0, 15)
	assert.Contains(t, content, "https://cdn/photo.jpg")
	assert.Contains(t, content, "receipt.pdf")
}
