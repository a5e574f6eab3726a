package postgres

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coachpo/borderless/internal/domain/quotestore"
)

const (
	defaultQuoteLimit = 20
	maxQuoteLimit     = 1000
)

const (
	quoteInsertSQL = `
INSERT INTO quotes (pair, price, tier, candidates, metadata)
VALUES ($1, $2, $3, $4, COALESCE($5::jsonb, '{}'::jsonb))
RETURNING id, pair, price, tier, candidates, metadata, created_at;
`

	quoteRecentSQL = `
SELECT id, pair, price, tier, candidates, metadata, created_at
FROM quotes
WHERE pair = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;
`
)

// QuoteStore persists resolved prices.
type QuoteStore struct {
	pool *pgxpool.Pool
}

var _ quotestore.Store = (*QuoteStore)(nil)

// NewQuoteStore constructs a QuoteStore backed by the provided pool.
func NewQuoteStore(pool *pgxpool.Pool) *QuoteStore {
	return &QuoteStore{pool: pool}
}

// Save inserts a resolved quote.
func (s *QuoteStore) Save(ctx context.Context, quote quotestore.Quote) (quotestore.Record, error) {
	if s.pool == nil {
		return quotestore.Record{}, fmt.Errorf("quote store: nil pool")
	}
	pair := strings.TrimSpace(quote.Pair)
	if pair == "" {
		return quotestore.Record{}, fmt.Errorf("quote store: pair required")
	}
	tier := strings.TrimSpace(quote.Tier)
	if tier == "" {
		return quotestore.Record{}, fmt.Errorf("quote store: tier required")
	}
	if quote.Price.Sign() <= 0 {
		return quotestore.Record{}, fmt.Errorf("quote store: price must be positive")
	}
	if quote.Candidates < 0 {
		return quotestore.Record{}, fmt.Errorf("quote store: candidates must be >= 0")
	}
	price, err := numericFromDecimal(quote.Price)
	if err != nil {
		return quotestore.Record{}, fmt.Errorf("quote store: %w", err)
	}
	metadata, err := encodeJSON(quote.Metadata)
	if err != nil {
		return quotestore.Record{}, fmt.Errorf("quote store: encode metadata: %w", err)
	}

	row := s.pool.QueryRow(ctx, quoteInsertSQL, pair, price, tier, quote.Candidates, metadata)
	record, err := scanQuote(row)
	if err != nil {
		return quotestore.Record{}, fmt.Errorf("quote store: insert: %w", err)
	}
	return record, nil
}

// Recent lists the newest quotes for pair, most recent first.
func (s *QuoteStore) Recent(ctx context.Context, pair string, limit int) ([]quotestore.Record, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("quote store: nil pool")
	}
	pair = strings.TrimSpace(pair)
	if pair == "" {
		return nil, fmt.Errorf("quote store: pair required")
	}
	if limit <= 0 {
		limit = defaultQuoteLimit
	}
	if limit > maxQuoteLimit {
		limit = maxQuoteLimit
	}

	rows, err := s.pool.Query(ctx, quoteRecentSQL, pair, limit)
	if err != nil {
		return nil, fmt.Errorf("quote store: query: %w", err)
	}
	defer rows.Close()

	out := make([]quotestore.Record, 0, limit)
	for rows.Next() {
		record, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("quote store: scan: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("quote store: rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (quotestore.Record, error) {
	var (
		record    quotestore.Record
		price     pgtype.Numeric
		metadata  []byte
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&record.ID, &record.Pair, &price, &record.Tier, &record.Candidates, &metadata, &createdAt); err != nil {
		return quotestore.Record{}, err
	}
	value, err := decimalFromNumeric(price)
	if err != nil {
		return quotestore.Record{}, err
	}
	record.Price = value
	decoded, err := decodeJSON(metadata)
	if err != nil {
		return quotestore.Record{}, err
	}
	if len(decoded) > 0 {
		record.Metadata = decoded
	}
	if createdAt.Valid {
		record.CreatedAt = createdAt.Time
	}
	return record, nil
}

func encodeJSON(value map[string]any) ([]byte, error) {
	if len(value) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return data, nil
}

func decodeJSON(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
