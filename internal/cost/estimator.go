// Package cost projects the price of embedding a document set before it is sent.
package cost

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"bookworm/internal/domain"
)

// DefaultEncoding is the tokenizer of the text-embedding-3 models.
const DefaultEncoding = "cl100k_base"

var ErrNegativePrice = errors.New("price per million tokens must not be negative")

// Tokenizer counts the tokens the embedding model sees for a text.
type Tokenizer interface {
	Count(text string) int
}

// PriceSource supplies the current price in USD per million tokens.
type PriceSource interface {
	PricePerMillion(ctx context.Context) (float64, error)
}

// FixedPrice is a PriceSource that never asks anyone.
type FixedPrice float64

func (p FixedPrice) PricePerMillion(context.Context) (float64, error) { return float64(p), nil }

// TiktokenTokenizer counts tokens with a BPE encoding bundled in the binary.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named encoding without network access.
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Estimate returns the USD cost of embedding the page content of docs.
func Estimate(docs []domain.Document, tok Tokenizer, costPerMillion float64) float64 {
	if len(docs) == 0 {
		return 0.0
	}
	total := 0
	for _, d := range docs {
		total += tok.Count(d.PageContent)
	}
	return float64(total) / 1_000_000 * costPerMillion
}

// Estimator prices a document set using a price obtained at call time.
type Estimator struct {
	Tokenizer Tokenizer
	Prices    PriceSource
}

// EstimateInteractive fetches the price from the configured source, which
// may prompt a human, and estimates docs with it.
func (e *Estimator) EstimateInteractive(ctx context.Context, docs []domain.Document) (float64, error) {
	price, err := e.Prices.PricePerMillion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read price: %w", err)
	}
	if price < 0 {
		return 0, ErrNegativePrice
	}
	return Estimate(docs, e.Tokenizer, price), nil
}
