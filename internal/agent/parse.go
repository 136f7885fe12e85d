package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/fault"
)

// actionFinish is the pseudo-tool the oracle uses to end the run.
const actionFinish = "finish"

// directive is one parsed oracle turn: either a tool invocation or a finish.
type directive struct {
	Thought     string          `json:"thought"`
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input,omitempty"`

	// Finish fields, only meaningful when Action == "finish".
	FinalAnswer string  `json:"final_answer,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	EnoughInfo  bool    `json:"enough_info,omitempty"`
	RequestInfo bool    `json:"request_info,omitempty"`
	Escalate    bool    `json:"escalate,omitempty"`
}

func (d *directive) isFinish() bool { return d.Action == actionFinish }

// parseDirective decodes an oracle turn. The oracle sometimes wraps the JSON
// in prose or code fences, so the first balanced object is extracted before
// decoding.
func parseDirective(content string) (*directive, error) {
	raw := extractJSON(content)
	var d directive
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("%w: decoding agent directive: %v", fault.ErrMalformedOracleOutput, err)
	}
	if d.Action == "" {
		return nil, fmt.Errorf("%w: directive has no action", fault.ErrMalformedOracleOutput)
	}
	if d.isFinish() && strings.TrimSpace(d.FinalAnswer) == "" {
		return nil, fmt.Errorf("%w: finish directive has no final_answer", fault.ErrMalformedOracleOutput)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %.2f out of range", fault.ErrMalformedOracleOutput, d.Confidence)
	}
	return &d, nil
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// dedupKey canonicalizes an action plus its arguments so repeated identical
// tool calls can be suppressed. Object keys are sorted; invalid input falls
// back to the raw bytes.
func dedupKey(action string, input json.RawMessage) string {
	if len(input) == 0 {
		return action + ":{}"
	}
	var m map[string]interface{}
	if err := json.Unmarshal(input, &m); err != nil {
		return action + ":" + string(input)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(action)
	b.WriteString(":{")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		v, _ := json.Marshal(m[k])
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteString("}")
	return b.String()
}
