package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/pkg/database"
)

// Repository is the PostgreSQL feed. Bars and signals are keyed (symbol,
// date); saves are idempotent upserts so the ingest pipeline can re-run a day
// without duplicating rows.
type Repository struct {
	db *database.DB
}

// NewRepository creates a repository over the shared pool.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS instruments (
			symbol   TEXT PRIMARY KEY,
			name     TEXT NOT NULL DEFAULT '',
			board    TEXT NOT NULL,
			is_st    BOOLEAN NOT NULL DEFAULT FALSE,
			listing  TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS price_bars (
			symbol         TEXT NOT NULL,
			date           DATE NOT NULL,
			open           DOUBLE PRECISION NOT NULL,
			high           DOUBLE PRECISION NOT NULL,
			low            DOUBLE PRECISION NOT NULL,
			close          DOUBLE PRECISION NOT NULL,
			volume         BIGINT NOT NULL,
			amount         DOUBLE PRECISION NOT NULL DEFAULT 0,
			prev_close     DOUBLE PRECISION NOT NULL,
			status         TEXT NOT NULL,
			suspend_reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE TABLE IF NOT EXISTS consensus_signals (
			symbol  TEXT NOT NULL,
			date    DATE NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_bars_date ON price_bars (date)`,
		`CREATE INDEX IF NOT EXISTS idx_consensus_signals_date ON consensus_signals (date)`,
	}
	for _, stmt := range ddl {
		if _, err := r.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveInstruments upserts the instrument snapshot.
func (r *Repository) SaveInstruments(ctx context.Context, instruments []market.Instrument) error {
	batch := &pgx.Batch{}
	for _, inst := range instruments {
		batch.Queue(`
			INSERT INTO instruments (symbol, name, board, is_st, listing, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (symbol) DO UPDATE SET
				name = EXCLUDED.name,
				board = EXCLUDED.board,
				is_st = EXCLUDED.is_st,
				listing = EXCLUDED.listing,
				updated_at = now()`,
			inst.Symbol, inst.Name, string(inst.Board), inst.IsST, string(inst.Listing))
	}
	return r.sendBatch(ctx, batch, "instruments")
}

// Instruments loads the full instrument snapshot.
func (r *Repository) Instruments(ctx context.Context) ([]market.Instrument, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT symbol, name, board, is_st, listing FROM instruments ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var out []market.Instrument
	for rows.Next() {
		var inst market.Instrument
		var board, listing string
		if err := rows.Scan(&inst.Symbol, &inst.Name, &board, &inst.IsST, &listing); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		inst.Board = market.Board(board)
		inst.Listing = market.ListingStatus(listing)
		out = append(out, inst)
	}
	return out, rows.Err()
}

// SaveBars upserts price bars.
func (r *Repository) SaveBars(ctx context.Context, bars []market.PriceBar) error {
	batch := &pgx.Batch{}
	for _, bar := range bars {
		batch.Queue(`
			INSERT INTO price_bars
				(symbol, date, open, high, low, close, volume, amount, prev_close, status, suspend_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (symbol, date) DO UPDATE SET
				open = EXCLUDED.open,
				high = EXCLUDED.high,
				low = EXCLUDED.low,
				close = EXCLUDED.close,
				volume = EXCLUDED.volume,
				amount = EXCLUDED.amount,
				prev_close = EXCLUDED.prev_close,
				status = EXCLUDED.status,
				suspend_reason = EXCLUDED.suspend_reason`,
			bar.Symbol, bar.Date, bar.Open, bar.High, bar.Low, bar.Close,
			bar.Volume, bar.Amount, bar.PrevClose, string(bar.Status), bar.SuspendReason)
	}
	return r.sendBatch(ctx, batch, "price bars")
}

// Bars loads bars for a symbol set over [from, to]. An empty symbol set means
// every symbol.
func (r *Repository) Bars(ctx context.Context, symbols []string, from, to time.Time) ([]market.PriceBar, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume, amount, prev_close, status, suspend_reason
		FROM price_bars
		WHERE date BETWEEN $1 AND $2`
	args := []interface{}{from, to}
	if len(symbols) > 0 {
		query += ` AND symbol = ANY($3)`
		args = append(args, symbols)
	}
	query += ` ORDER BY symbol, date`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	defer rows.Close()

	var out []market.PriceBar
	for rows.Next() {
		var bar market.PriceBar
		var status string
		if err := rows.Scan(&bar.Symbol, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close,
			&bar.Volume, &bar.Amount, &bar.PrevClose, &status, &bar.SuspendReason); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bar.Date = market.DayOf(bar.Date)
		bar.Status = market.DayStatus(status)
		out = append(out, bar)
	}
	return out, rows.Err()
}

// SaveSignals upserts signal records. The family payload is stored as JSONB
// so independently-missing halves round-trip exactly.
func (r *Repository) SaveSignals(ctx context.Context, signals []consensus.Signal) error {
	batch := &pgx.Batch{}
	for _, sig := range signals {
		payload, err := json.Marshal(sig)
		if err != nil {
			return fmt.Errorf("failed to encode signal %s/%s: %w",
				sig.Symbol, sig.Date.Format("2006-01-02"), err)
		}
		batch.Queue(`
			INSERT INTO consensus_signals (symbol, date, payload)
			VALUES ($1, $2, $3)
			ON CONFLICT (symbol, date) DO UPDATE SET payload = EXCLUDED.payload`,
			sig.Symbol, sig.Date, payload)
	}
	return r.sendBatch(ctx, batch, "signals")
}

// Signals loads signal records for a symbol set over [from, to].
func (r *Repository) Signals(ctx context.Context, symbols []string, from, to time.Time) ([]consensus.Signal, error) {
	query := `
		SELECT payload FROM consensus_signals
		WHERE date BETWEEN $1 AND $2`
	args := []interface{}{from, to}
	if len(symbols) > 0 {
		query += ` AND symbol = ANY($3)`
		args = append(args, symbols)
	}
	query += ` ORDER BY symbol, date`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []consensus.Signal
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		var sig consensus.Signal
		if err := json.Unmarshal(payload, &sig); err != nil {
			return nil, fmt.Errorf("failed to decode signal: %w", err)
		}
		sig.Date = market.DayOf(sig.Date)
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (r *Repository) sendBatch(ctx context.Context, batch *pgx.Batch, what string) error {
	if batch.Len() == 0 {
		return nil
	}
	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save %s: %w", what, err)
		}
	}
	return nil
}
