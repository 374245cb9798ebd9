package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"launchpool/internal/model"
)

// Store provides Postgres persistence for pool events and snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertSnapshots inserts or updates pool state snapshots.
func (s *Store) UpsertSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				pool_address, variable_asset, mode, reserve_quote, reserve_variable,
				total_supply, pending_lp_fees, pending_protocol_fees, fee_per_share_stored,
				mode_deadline, last_trade_marker, genesis_time, updated_at_seq, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				mode = EXCLUDED.mode,
				reserve_quote = EXCLUDED.reserve_quote,
				reserve_variable = EXCLUDED.reserve_variable,
				total_supply = EXCLUDED.total_supply,
				pending_lp_fees = EXCLUDED.pending_lp_fees,
				pending_protocol_fees = EXCLUDED.pending_protocol_fees,
				fee_per_share_stored = EXCLUDED.fee_per_share_stored,
				mode_deadline = EXCLUDED.mode_deadline,
				last_trade_marker = EXCLUDED.last_trade_marker,
				updated_at_seq = EXCLUDED.updated_at_seq,
				updated_at = now()
		`,
			snap.Pool,
			snap.VariableAsset,
			snap.Mode,
			snap.ReserveQuote,
			snap.ReserveVariable,
			snap.TotalSupply,
			snap.PendingLpFees,
			snap.PendingProtocolFees,
			snap.FeePerShareStored,
			int64(snap.ModeDeadline),
			int64(snap.LastTradeMarker),
			int64(snap.GenesisTime),
			int64(snap.UpdatedAtSeq),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertEvents inserts pool events, idempotent on (pool, seq).
func (s *Store) InsertEvents(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				pool_address, seq, event_type, caller, recipient,
				quote_in, variable_in, quote_out, variable_out, liquidity, event_ts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
			ON CONFLICT (pool_address, seq) DO NOTHING
		`,
			ev.Pool,
			int64(ev.Seq),
			ev.Type,
			ev.Caller,
			ev.To,
			ev.QuoteIn,
			ev.VariableIn,
			ev.QuoteOut,
			ev.VariableOut,
			ev.Liquidity,
			int64(ev.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
