package middleware

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinMentor/internal/domain/models"
)

type captureProc struct {
	got []*models.Trade
}

func (c *captureProc) Process(_ context.Context, t *models.Trade) error {
	c.got = append(c.got, t)
	return nil
}

type noMetrics struct{}

func (noMetrics) RecordAdvisorRequest(string, string, string)  {}
func (noMetrics) RecordAdvisorLatency(string, string, float64) {}
func (noMetrics) RecordProposal(string, string)                {}
func (noMetrics) RecordMessageSent(string, string)             {}
func (noMetrics) RecordError(string)                           {}
func (noMetrics) RecordLastPrice(string, float64)              {}
func (noMetrics) RecordLatency(string, float64)                {}

func TestPipelineValidation(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, noMetrics{})

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), &models.Trade{Price: 1, Timestamp: 1}))
	assert.Error(t, p.Process(context.Background(), &models.Trade{Symbol: "BTCUSDT", Price: -1, Timestamp: 1}))
	assert.Empty(t, proc.got)
}

func TestPipelineAppliesTransform(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, noMetrics{},
		WithTransform(func(tr *models.Trade) *models.Trade {
			tr.Symbol = strings.ToUpper(tr.Symbol)
			if tr.Timestamp > 1e11 {
				tr.Timestamp /= 1000
			}
			return tr
		}),
	)

	err := p.Process(context.Background(), &models.Trade{
		Symbol:    "btcusdt",
		Price:     60000,
		Volume:    0.5,
		Timestamp: 1750000000000, // milliseconds
	})
	require.NoError(t, err)
	require.Len(t, proc.got, 1)
	assert.Equal(t, "BTCUSDT", proc.got[0].Symbol)
	assert.Equal(t, int64(1750000000), proc.got[0].Timestamp)
}

func TestPipelineRejectsTransformOutput(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, noMetrics{},
		WithTransform(func(tr *models.Trade) *models.Trade {
			tr.Symbol = ""
			return tr
		}),
	)

	err := p.Process(context.Background(), &models.Trade{
		Symbol: "BTCUSDT", Price: 1, Volume: 1, Timestamp: 1,
	})
	assert.Error(t, err)
	assert.Empty(t, proc.got)
}
