package cost

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookworm/internal/domain"
)

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

type failingPrice struct{}

func (failingPrice) PricePerMillion(context.Context) (float64, error) {
	return 0, errors.New("prompt aborted")
}

func TestEstimate(t *testing.T) {
	docs := []domain.Document{domain.NewDocument("one two three", nil), domain.NewDocument("four", nil)}

	got := Estimate(docs, wordTokenizer{}, 0.02)
	assert.InDelta(t, 4.0/1_000_000*0.02, got, 1e-15)
}

func TestEstimate_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Estimate(nil, wordTokenizer{}, 0.02))
}

func TestEstimator_EstimateInteractive(t *testing.T) {
	e := &Estimator{Tokenizer: wordTokenizer{}, Prices: FixedPrice(1_000_000)}

	got, err := e.EstimateInteractive(context.Background(), []domain.Document{domain.NewDocument("a b c", nil)})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got, 1e-9)
}

func TestEstimator_PriceErrors(t *testing.T) {
	e := &Estimator{Tokenizer: wordTokenizer{}, Prices: failingPrice{}}
	_, err := e.EstimateInteractive(context.Background(), nil)
	assert.ErrorContains(t, err, "prompt aborted")

	e.Prices = FixedPrice(-1)
	_, err = e.EstimateInteractive(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestTiktokenTokenizer(t *testing.T) {
	tok, err := NewTiktokenTokenizer("")
	require.NoError(t, err)

	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 2, tok.Count("hello world"))

	doc := domain.NewDocument(`{"name": "Go", "url": "https://go.dev"}`, nil)
	n := tok.Count(doc.PageContent)
	assert.Greater(t, n, 0)
	assert.InDelta(t, float64(n)/1_000_000*0.02, Estimate([]domain.Document{doc}, tok, 0.02), 1e-15)
}

func TestTiktokenTokenizer_UnknownEncoding(t *testing.T) {
	_, err := NewTiktokenTokenizer("no_such_encoding")
	assert.Error(t, err)
}
