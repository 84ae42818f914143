package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// SaleSnapshotStore implements storage.SaleSnapshotStore using PostgreSQL.
// Amounts are stored as NUMERIC(78,0) and travel as text so uint256 values survive.
type SaleSnapshotStore struct {
	pool *Pool
}

// NewSaleSnapshotStore creates a new SaleSnapshotStore.
func NewSaleSnapshotStore(pool *Pool) *SaleSnapshotStore {
	return &SaleSnapshotStore{pool: pool}
}

var _ storage.SaleSnapshotStore = (*SaleSnapshotStore)(nil)

const selectSnapshots = `
	SELECT address, owner, sale_asset, base_asset, phase,
		collected::text, sold::text, hard_cap::text, soft_cap::text,
		buyers, finalized, start_time, end_time, updated_at
	FROM sale_snapshots
`

// Upsert stores s, replacing any previous snapshot for the same address.
func (st *SaleSnapshotStore) Upsert(ctx context.Context, s *domain.SaleSnapshot) error {
	if s == nil || s.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO sale_snapshots (
			address, owner, sale_asset, base_asset, phase,
			collected, sold, hard_cap, soft_cap,
			buyers, finalized, start_time, end_time, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6::text::numeric, $7::text::numeric, $8::text::numeric, $9::text::numeric,
			$10, $11, $12, $13, $14
		)
		ON CONFLICT (address) DO UPDATE SET
			phase = EXCLUDED.phase,
			collected = EXCLUDED.collected,
			sold = EXCLUDED.sold,
			buyers = EXCLUDED.buyers,
			finalized = EXCLUDED.finalized,
			updated_at = EXCLUDED.updated_at
	`

	_, err := st.pool.Exec(ctx, query,
		s.Address, s.Owner, s.SaleAsset, s.BaseAsset, int16(s.Phase),
		orZero(s.Collected), orZero(s.Sold), orZero(s.HardCap), orZero(s.SoftCap),
		int64(s.Buyers), s.Finalized, s.StartTime, s.EndTime, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert sale snapshot: %w", err)
	}
	return nil
}

// Get retrieves a snapshot by sale address. Returns ErrNotFound if not exists.
func (st *SaleSnapshotStore) Get(ctx context.Context, address string) (*domain.SaleSnapshot, error) {
	row := st.pool.QueryRow(ctx, selectSnapshots+`WHERE address = $1`, address)

	s, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sale snapshot: %w", err)
	}
	return s, nil
}

// List retrieves all snapshots ordered by start time, then address.
func (st *SaleSnapshotStore) List(ctx context.Context) ([]*domain.SaleSnapshot, error) {
	rows, err := st.pool.Query(ctx, selectSnapshots+`ORDER BY start_time ASC, address ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sale snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.SaleSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale snapshot row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale snapshot rows: %w", err)
	}
	return result, nil
}

func scanSnapshot(row pgx.Row) (*domain.SaleSnapshot, error) {
	var s domain.SaleSnapshot
	var phase int16
	var buyers int64

	err := row.Scan(
		&s.Address, &s.Owner, &s.SaleAsset, &s.BaseAsset, &phase,
		&s.Collected, &s.Sold, &s.HardCap, &s.SoftCap,
		&buyers, &s.Finalized, &s.StartTime, &s.EndTime, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Phase = domain.Phase(phase)
	s.Buyers = uint64(buyers)
	return &s, nil
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
