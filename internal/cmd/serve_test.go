package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/ticket"
)

type finishOracle struct{}

func (finishOracle) Complete(_ context.Context, _ llm.Task, _ []llm.Message, _ float64, _ int) (*llm.Response, error) {
	return &llm.Response{
		Content: `{"action":"finish","final_answer":"done","confidence":0.9,"enough_info":true}`,
	}, nil
}

func TestAgentRunnerFinishesWithPerTicketTools(t *testing.T) {
	run := agentRunner(finishOracle{}, nil, nil, 3)

	st := &ticket.State{
		Ticket:         &ticket.Ticket{ID: 7, Subject: "broken handle"},
		Classification: &ticket.Classification{Category: ticket.CategoryWarrantyClaim},
	}
	out, err := run.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusFinished, out.Status)
	assert.Equal(t, "done", out.FinalAnswer)
}

func TestParseAPIKeys(t *testing.T) {
	m := parseAPIKeys("")
	assert.Empty(t, m)

	m = parseAPIKeys("key1")
	assert.Len(t, m, 1)
	assert.Equal(t, "default", m["key1"])

	m = parseAPIKeys("key1:ops,key2:oncall")
	assert.Len(t, m, 2)
	assert.Equal(t, "ops", m["key1"])
	assert.Equal(t, "oncall", m["key2"])

	// "mykey:" or "mykey:  " must map to the default name (empty after colon = default)
	m = parseAPIKeys("mykey:")
	assert.Len(t, m, 1)
	assert.Equal(t, "default", m["mykey"], "key with trailing colon must get default name")

	m = parseAPIKeys("mykey:  ")
	assert.Len(t, m, 1)
	assert.Equal(t, "default", m["mykey"], "key with colon and spaces must get default name")
}
