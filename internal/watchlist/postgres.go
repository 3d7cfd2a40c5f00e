package watchlist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore keeps records in the watchlist table (see postgres.Schema).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) List(ctx context.Context, kind Kind) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, store_name, product, added_at FROM watchlist WHERE kind = $1 ORDER BY added_at, id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r       Record
			k       string
			product []byte
		)
		if err := rows.Scan(&r.ID, &k, &r.StoreName, &product, &r.AddedAt); err != nil {
			return nil, err
		}
		r.Kind = Kind(k)
		if err := json.Unmarshal(product, &r.Product); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Add(ctx context.Context, rec Record) error {
	product, err := json.Marshal(rec.Product)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (id, kind, store_name, product, added_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
		rec.ID, string(rec.Kind), rec.StoreName, product, rec.AddedAt)
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}
	return expectOne(res, ErrDuplicate)
}

func (s *PostgresStore) Update(ctx context.Context, rec Record) error {
	product, err := json.Marshal(rec.Product)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE watchlist SET store_name = $2, product = $3 WHERE id = $1`, rec.ID, rec.StoreName, product)
	if err != nil {
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}
	return expectOne(res, ErrNotFound)
}

func (s *PostgresStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return expectOne(res, ErrNotFound)
}

func (s *PostgresStore) Clear(ctx context.Context, kind Kind) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE kind = $1`, string(kind))
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func expectOne(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}
