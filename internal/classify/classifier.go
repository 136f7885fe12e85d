// Package classify routes tickets onto the category taxonomy. Three layers,
// cheapest first: regex fast paths for unambiguous skip categories, an
// oracle JSON classification, and a keyword-weight fallback scorer used when
// the oracle is unavailable or returns garbage. Classification never fails
// the pipeline.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/attachment"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"
	flussootel "github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/requestctx"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

var tracer = flussootel.Tracer("github.com/abhijyotiba/Flusso-Automation-sub000/internal/classify")

// Oracle is the slice of llm.Router the classifier needs.
type Oracle interface {
	Complete(ctx context.Context, task llm.Task, messages []llm.Message, temperature float64, maxTokens int) (*llm.Response, error)
}

// Classifier assigns a category to each inbound ticket.
type Classifier struct {
	oracle Oracle
	tables *Tables
}

// New creates a Classifier. oracle may be nil, in which case every
// non-fast-path ticket goes through the keyword scorer.
func New(oracle Oracle, tables *Tables) *Classifier {
	return &Classifier{oracle: oracle, tables: tables}
}

const classifyTemperature = 0.1

// Classify decides the category for tk. It never returns an error: oracle
// failures degrade to the keyword fallback and unknown content lands on
// general.
func (c *Classifier) Classify(ctx context.Context, tk *ticket.Ticket) ticket.Classification {
	ctx, span := tracer.Start(ctx, "classify.ticket")
	defer span.End()

	cls := c.classify(ctx, tk)
	span.SetAttributes(
		attribute.String("classification.category", string(cls.Category)),
		attribute.Float64("classification.confidence", cls.Confidence),
		attribute.String("classification.method", string(cls.Method)),
	)
	log.Info().
		Str("correlation_id", requestctx.CorrelationID(ctx)).
		Int64("ticket_id", tk.ID).
		Str("category", string(cls.Category)).
		Str("method", string(cls.Method)).
		Float64("confidence", cls.Confidence).
		Msg("ticket_classified")
	return cls
}

func (c *Classifier) classify(ctx context.Context, tk *ticket.Ticket) ticket.Classification {
	if fast, ok := c.fastPath(tk); ok {
		return fast
	}
	if c.oracle != nil {
		if cls, err := c.oracleClassify(ctx, tk); err == nil {
			return cls
		} else {
			log.Warn().
				Str("correlation_id", requestctx.CorrelationID(ctx)).
				Int64("ticket_id", tk.ID).
				Err(err).
				Msg("oracle_classification_failed_falling_back")
		}
	}
	return c.keywordFallback(tk)
}

// fastPath handles the unambiguous cases without an oracle call.
func (c *Classifier) fastPath(tk *ticket.Ticket) (ticket.Classification, bool) {
	if strings.TrimSpace(tk.Subject) == "" && strings.TrimSpace(tk.Text) == "" {
		return ticket.Classification{
			Category:   ticket.CategoryGeneral,
			Confidence: 0.30,
			Reasoning:  "empty ticket",
			Method:     ticket.MethodFastPath,
		}, true
	}

	// "purchase order" in the subject alone suffices; a PO pattern in the
	// body needs a PDF attachment as corroboration.
	if matchAny(c.tables.POSubject, tk.Subject) ||
		(matchAny(c.tables.POBody, tk.Text) && attachment.HasPDF(tk)) {
		return ticket.Classification{
			Category:   ticket.CategoryPurchaseOrder,
			Confidence: 0.95,
			Reasoning:  "purchase order pattern match",
			Method:     ticket.MethodFastPath,
		}, true
	}

	if matchAny(c.tables.AutoReply, tk.Subject) || matchAny(c.tables.AutoReply, tk.Text) {
		return ticket.Classification{
			Category:   ticket.CategoryAutoReply,
			Confidence: 0.95,
			Reasoning:  "auto-reply phrase match",
			Method:     ticket.MethodFastPath,
		}, true
	}

	return ticket.Classification{}, false
}

type oracleClassification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (c *Classifier) oracleClassify(ctx context.Context, tk *ticket.Ticket) (ticket.Classification, error) {
	cats := ticket.AllCategories()
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = string(cat)
	}

	messages := []llm.Message{
		{Role: "system", Content: "You classify customer support tickets. Respond with a single JSON object " +
			`{"category": "...", "confidence": 0.0, "reasoning": "..."} and nothing else. ` +
			"Valid categories: " + strings.Join(names, ", ")},
		{Role: "user", Content: fmt.Sprintf("Subject: %s\n\nBody:\n%s\n\nTags: %s",
			tk.Subject, truncate(tk.Text, 4000), strings.Join(tk.Tags, ", "))},
	}

	resp, err := c.oracle.Complete(ctx, llm.TaskClassify, messages, classifyTemperature, 300)
	if err != nil {
		return ticket.Classification{}, err
	}

	var out oracleClassification
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &out); err != nil {
		return ticket.Classification{}, fmt.Errorf("decoding classification: %v: %w", err, fault.ErrMalformedOracleOutput)
	}
	cat := ticket.Category(out.Category)
	if !ticket.Known(cat) || out.Confidence < 0 || out.Confidence > 1 {
		return ticket.Classification{}, fmt.Errorf("classification out of range (category=%q confidence=%v): %w",
			out.Category, out.Confidence, fault.ErrMalformedOracleOutput)
	}

	return ticket.Classification{
		Category:   cat,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
		Method:     ticket.MethodOracle,
	}, nil
}

// keywordFallback scores every category by weighted keyword hits over the
// lowercased subject and body. Ticket tags matching a category name add the
// category's tag weight; skip categories get their boost only on top of a
// real keyword signal. Arg-max wins, general by default.
func (c *Classifier) keywordFallback(tk *ticket.Ticket) ticket.Classification {
	haystack := strings.ToLower(tk.Subject + " " + tk.Text)
	tagSet := make(map[string]bool, len(tk.Tags))
	for _, tag := range tk.Tags {
		tagSet[strings.ToLower(tag)] = true
	}

	best := ticket.CategoryGeneral
	bestScore := 0.0
	for _, ct := range c.tables.Categories {
		score := 0.0
		for _, kw := range ct.Keywords {
			if strings.Contains(haystack, strings.ToLower(kw.Term)) {
				score += kw.Weight
			}
		}
		if tagSet[ct.Name] {
			score += ct.TagWeight
		}
		if ct.SkipBoost > 0 && score > 0 {
			score += ct.SkipBoost
		}
		if score > bestScore {
			bestScore = score
			best = ticket.Category(ct.Name)
		}
	}

	confidence := 0.30
	if bestScore > 0 {
		confidence = min(0.85, 0.30+bestScore/10)
	}
	return ticket.Classification{
		Category:   best,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("keyword score %.1f", bestScore),
		Method:     ticket.MethodKeywordFallback,
	}
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost JSON object in s.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
