// Package events records verify and settle outcomes to Postgres. Recording
// is strictly best-effort: a sink failure is reported to the operator log and
// never to the caller.
package events

import (
	"context"
	"database/sql"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/ctrl-shift-projects/b402-facilitator-go/types"
)

// Sink writes event rows to the verify_requests and settle_transactions
// tables. A nil *Sink is valid and drops every record, so callers never need
// to branch on whether logging is configured.
type Sink struct {
	db *sql.DB
}

// NewSink wraps a database handle opened through the pgx stdlib driver
// (imported here for its side-effect registration).
func NewSink(db *sql.DB) *Sink {
	return &Sink{db: db}
}

// Close releases the underlying database handle.
func (s *Sink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// VerifyEvent is one row of verify_requests.
type VerifyEvent struct {
	Payer         string
	Recipient     string
	Token         string
	TokenInfo     types.TokenInfo
	Amount        string
	Nonce         string
	Network       types.Network
	ChainID       int64
	IsValid       bool
	InvalidReason types.InvalidReason
	Duration      time.Duration
}

// SettleEvent is one row of settle_transactions.
type SettleEvent struct {
	TransactionHash string
	Payer           string
	Recipient       string
	Token           string
	TokenInfo       types.TokenInfo
	Amount          string
	Nonce           string
	Network         types.Network
	ChainID         int64
	BlockNumber     uint64
	GasUsed         uint64
	GasPrice        string
	Success         bool
	ErrorReason     types.ErrorReason
	TransactionTime time.Duration
	TotalTime       time.Duration
}

// RecordVerify inserts a verify outcome.
func (s *Sink) RecordVerify(ctx context.Context, e VerifyEvent) {
	if s == nil || s.db == nil {
		return
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verify_requests (id, payer, recipient, token, token_symbol, amount, amount_formatted, nonce, network, chain_id, is_valid, invalid_reason, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.NewString(),
		e.Payer,
		e.Recipient,
		e.Token,
		e.TokenInfo.Symbol,
		e.Amount,
		formatAmount(e.Amount, e.TokenInfo.Decimals),
		e.Nonce,
		string(e.Network),
		e.ChainID,
		e.IsValid,
		nullableString(string(e.InvalidReason)),
		e.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		log.Warn("failed to record verify event", "payer", e.Payer, "err", err)
	}
}

// RecordSettle inserts a settle outcome.
func (s *Sink) RecordSettle(ctx context.Context, e SettleEvent) {
	if s == nil || s.db == nil {
		return
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settle_transactions (id, transaction_hash, payer, recipient, token, token_symbol, amount, amount_formatted, nonce, network, chain_id, block_number, gas_used, gas_price, success, error_reason, transaction_time_ms, total_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		uuid.NewString(),
		nullableString(e.TransactionHash),
		e.Payer,
		e.Recipient,
		e.Token,
		e.TokenInfo.Symbol,
		e.Amount,
		formatAmount(e.Amount, e.TokenInfo.Decimals),
		e.Nonce,
		string(e.Network),
		e.ChainID,
		e.BlockNumber,
		e.GasUsed,
		nullableString(e.GasPrice),
		e.Success,
		nullableString(string(e.ErrorReason)),
		e.TransactionTime.Milliseconds(),
		e.TotalTime.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		log.Warn("failed to record settle event", "payer", e.Payer, "err", err)
	}
}

// formatAmount renders a smallest-unit amount as a decimal string using the
// token's precision. Unparseable amounts pass through unchanged.
func formatAmount(amount string, decimals uint8) string {
	raw, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return amount
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
