package requestctx

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetCorrelationID_and_CorrelationID(t *testing.T) {
	ctx := context.Background()

	ctx2 := SetCorrelationID(ctx, "corr_abc123def456")
	assert.Equal(t, "corr_abc123def456", CorrelationID(ctx2))

	ctx3 := SetCorrelationID(ctx2, "corr_other")
	assert.Equal(t, "corr_other", CorrelationID(ctx3))
	assert.Equal(t, "corr_abc123def456", CorrelationID(ctx2))
}

func TestCorrelationIDMintsWhenAbsent(t *testing.T) {
	id := CorrelationID(context.Background())
	assert.True(t, strings.HasPrefix(id, "corr_"))
	assert.Len(t, id, len("corr_")+12)
}

func TestNewCorrelationIDUnique(t *testing.T) {
	assert.NotEqual(t, NewCorrelationID(), NewCorrelationID())
}
