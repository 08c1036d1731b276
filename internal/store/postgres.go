package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/creation-sync/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer for creations and credits.
type PostgresStore struct {
	pool           *pgxpool.Pool
	initialCredits int64
}

var _ CreationStore = (*PostgresStore)(nil)

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
// initialCredits is granted to a user the first time their balance is touched.
func NewPostgresStore(dbURL string, initialCredits int64) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, initialCredits: initialCredits}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// CreateCreation runs the debit and the insert in one transaction.
//
// Replays are detected twice: up front by looking the token up, and at insert
// time through the (user_id, creation_token) constraint for concurrent
// replays. In both cases the transaction is rolled back, so the debit is
// never applied twice.
func (p *PostgresStore) CreateCreation(ctx context.Context, c models.Creation, cost int64) (CreateResult, error) {
	if c.UserID == "" || c.CreationToken == "" || c.ID == "" {
		return CreateResult{}, errors.New("userID/creationToken/id required")
	}

	if err := p.provision(ctx, c.UserID); err != nil {
		return CreateResult{}, err
	}

	if existing, err := p.findByToken(ctx, c.UserID, c.CreationToken); err == nil {
		return p.duplicate(ctx, existing)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return CreateResult{}, err
	}

	args := c.Args
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return CreateResult{}, err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return CreateResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int64
	err = tx.QueryRow(ctx, `
		UPDATE credits SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1
		RETURNING balance
	`, c.UserID, cost).Scan(&balance)
	if err != nil {
		if pgCode(err) == pgerrcode.CheckViolation {
			_ = tx.Rollback(ctx)
			current, balErr := p.Balance(ctx, c.UserID)
			if balErr != nil {
				return CreateResult{}, balErr
			}
			return CreateResult{}, &InsufficientCreditsError{Current: current, Required: cost}
		}
		return CreateResult{}, err
	}

	// RETURNING only when inserted; a concurrent replay returns no rows.
	err = tx.QueryRow(ctx, `
		INSERT INTO creations(id, user_id, target_id, method, args, creation_token, mutate_of_id)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''))
		ON CONFLICT (user_id, creation_token) DO NOTHING
		RETURNING created_at
	`, c.ID, c.UserID, c.TargetID, c.Method, argsJSON, c.CreationToken, c.MutateOfID).Scan(&c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgerrcode.UniqueViolation {
			_ = tx.Rollback(ctx)
			existing, findErr := p.findByToken(ctx, c.UserID, c.CreationToken)
			if findErr != nil {
				return CreateResult{}, findErr
			}
			return p.duplicate(ctx, existing)
		}
		return CreateResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateResult{}, err
	}

	c.CreatedAt = c.CreatedAt.UTC()
	c.Args = args
	return CreateResult{Creation: c, Balance: balance}, nil
}

// ListCreations returns up to limit creations for userID, newest first.
func (p *PostgresStore) ListCreations(ctx context.Context, userID string, limit int) ([]models.Creation, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, user_id, target_id, method, args, creation_token, COALESCE(mutate_of_id, ''), created_at
		FROM creations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Creation{}
	for rows.Next() {
		c, err := scanCreation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Balance returns the user's balance, granting initial credits on first use.
func (p *PostgresStore) Balance(ctx context.Context, userID string) (int64, error) {
	if err := p.provision(ctx, userID); err != nil {
		return 0, err
	}
	var balance int64
	err := p.pool.QueryRow(ctx, `SELECT balance FROM credits WHERE user_id = $1`, userID).Scan(&balance)
	return balance, err
}

func (p *PostgresStore) provision(ctx context.Context, userID string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO credits(user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, p.initialCredits)
	return err
}

func (p *PostgresStore) findByToken(ctx context.Context, userID, token string) (models.Creation, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id::text, user_id, target_id, method, args, creation_token, COALESCE(mutate_of_id, ''), created_at
		FROM creations
		WHERE user_id = $1 AND creation_token = $2
	`, userID, token)
	return scanCreation(row)
}

func (p *PostgresStore) duplicate(ctx context.Context, existing models.Creation) (CreateResult, error) {
	balance, err := p.Balance(ctx, existing.UserID)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Creation: existing, Balance: balance, Duplicate: true}, nil
}

func scanCreation(row pgx.Row) (models.Creation, error) {
	var (
		c        models.Creation
		argsJSON []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.TargetID, &c.Method, &argsJSON, &c.CreationToken, &c.MutateOfID, &c.CreatedAt); err != nil {
		return models.Creation{}, err
	}
	if len(argsJSON) > 0 {
		if err := json.Unmarshal(argsJSON, &c.Args); err != nil {
			return models.Creation{}, err
		}
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
