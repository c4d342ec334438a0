package sessionrepo

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/Tarquiniy/telegram-auth-bridge/bridge"
	autherrors "github.com/Tarquiniy/telegram-auth-bridge/internal/errors"
	migrations "github.com/Tarquiniy/telegram-auth-bridge/migrations/postgres"
)

// Connect opens a pgx pool and applies the embedded migrations.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[Connect] open connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "[Connect] ping")
	}
	if err := migrate(dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return errors.Wrap(err, "[migrate] open database")
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "[migrate] set dialect")
	}
	if err := goose.Up(db, "."); err != nil {
		return errors.Wrap(err, "[migrate] goose up")
	}
	return nil
}

const sessionColumns = `COALESCE(ticket, ''), nonce, COALESCE(telegram_id, 0),
	COALESCE(payload, ''), COALESCE(action_link, ''), created_at, updated_at`

// Postgres persists auth sessions in the auth_sessions table. Orphan
// rows are stored with a NULL ticket so they never collide on the unique
// ticket index; nonce lookups only consider ticket-addressable rows.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ bridge.SessionRepo = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (r *Postgres) Insert(ctx context.Context, session *bridge.Session) error {
	query := `INSERT INTO auth_sessions (ticket, nonce, telegram_id, payload, action_link, created_at, updated_at)
			  VALUES (NULLIF($1, ''), $2, NULLIF($3, 0), NULLIF($4, ''), NULLIF($5, ''), $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		session.Ticket, session.Nonce, session.TelegramID,
		session.Payload, session.ActionLink, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "[Postgres.Insert] insert auth session")
	}
	return nil
}

func (r *Postgres) Upsert(ctx context.Context, session *bridge.Session) error {
	query := `INSERT INTO auth_sessions (ticket, nonce, telegram_id, payload, action_link, created_at, updated_at)
			  VALUES (NULLIF($1, ''), $2, NULLIF($3, 0), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
			  ON CONFLICT (ticket) DO UPDATE SET
				nonce       = EXCLUDED.nonce,
				telegram_id = EXCLUDED.telegram_id,
				payload     = EXCLUDED.payload,
				action_link = EXCLUDED.action_link,
				updated_at  = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		session.Ticket, session.Nonce, session.TelegramID,
		session.Payload, session.ActionLink, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "[Postgres.Upsert] upsert auth session")
	}
	return nil
}

func (r *Postgres) GetByTicket(ctx context.Context, ticket string) (*bridge.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM auth_sessions WHERE ticket = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, ticket))
}

func (r *Postgres) GetByNonce(ctx context.Context, nonce string) (*bridge.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM auth_sessions
			  WHERE nonce = $1 AND ticket IS NOT NULL
			  ORDER BY created_at ASC LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query, nonce))
}

func (r *Postgres) scanOne(row pgx.Row) (*bridge.Session, error) {
	var session bridge.Session
	err := row.Scan(
		&session.Ticket, &session.Nonce, &session.TelegramID,
		&session.Payload, &session.ActionLink, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "[Postgres.scanOne] scan auth session")
	}
	return &session, nil
}

// PostgresProfiles persists the widget-path projection.
type PostgresProfiles struct {
	pool *pgxpool.Pool
}

var _ bridge.ProfileRepo = (*PostgresProfiles)(nil)

func NewPostgresProfiles(pool *pgxpool.Pool) *PostgresProfiles {
	return &PostgresProfiles{pool: pool}
}

func (r *PostgresProfiles) Upsert(ctx context.Context, profile *bridge.Profile) error {
	query := `INSERT INTO telegram_profiles (email, telegram_id, name, username, updated_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (email) DO UPDATE SET
				telegram_id = EXCLUDED.telegram_id,
				name        = EXCLUDED.name,
				username    = EXCLUDED.username,
				updated_at  = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		profile.Email, profile.TelegramID, profile.Name, profile.Username, profile.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "[PostgresProfiles.Upsert] upsert profile")
	}
	return nil
}
