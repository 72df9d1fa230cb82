// Package postgres implements the shard store on PostgreSQL. Pages are
// acquired FOR UPDATE SKIP LOCKED so this service and the live crawler
// never block on or mutate each other's rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ntuwsl/indexselect/internal/pipeline"
	"github.com/ntuwsl/indexselect/internal/store"
)

const undefinedTableCode = "42P01"

var validTablePrefix = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and shard table naming.
type Config struct {
	DSN             string
	TablePrefix     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// ShardStore reads and mutates url_state shard tables.
type ShardStore struct {
	pool   Pool
	prefix string
}

// New connects a pool and returns the store.
func New(ctx context.Context, cfg Config) (*ShardStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	prefix := cfg.TablePrefix
	if prefix == "" {
		prefix = "url_state"
	}
	if !validTablePrefix.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ShardStore{pool: pool, prefix: prefix}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(pool Pool, prefix string) (*ShardStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if prefix == "" {
		prefix = "url_state"
	}
	if !validTablePrefix.MatchString(prefix) {
		return nil, fmt.Errorf("invalid table prefix %q", prefix)
	}
	return &ShardStore{pool: pool, prefix: prefix}, nil
}

// Close releases the underlying pool resources.
func (s *ShardStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *ShardStore) tableName(shard int) string {
	return fmt.Sprintf("%s_%03d", s.prefix, shard)
}

// AcquirePage implements store.ShardStore. The select runs inside a fresh
// transaction whose row locks are held until the page commits.
func (s *ShardStore) AcquirePage(
	ctx context.Context,
	shard int,
	cursor string,
	limit int,
) (store.Page, error) {
	table := s.tableName(shard)

	query, args, err := sq.Select(
		"url",
		"COALESCE(domain, '')",
		"COALESCE(content_path, '')",
		"fetch_ok",
		"COALESCE(inlink_count, 0)",
		"COALESCE(domain_score, 0)",
	).
		From(table).
		Where(sq.Gt{"fetch_ok": 0}).
		Where(sq.Eq{"processed_ok": 0, "processed_fail": 0}).
		Where(sq.Gt{"url": cursor}).
		OrderBy("url ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scan query: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin page transaction: %w", err)
	}

	docs, err := scanDocs(ctx, tx, query, args)
	if err != nil {
		_ = tx.Rollback(ctx)
		if isUndefinedTable(err) {
			return nil, store.ErrShardMissing
		}
		return nil, fmt.Errorf("scan shard %s: %w", table, err)
	}

	return &page{tx: tx, table: table, docs: docs}, nil
}

// ResetPage implements store.ShardStore. One statement clears one page of
// already-attempted rows, skipping rows the crawler currently holds.
func (s *ShardStore) ResetPage(ctx context.Context, shard int, limit int) (int64, error) {
	table := s.tableName(shard)
	query := fmt.Sprintf(`
UPDATE %s SET processed_ok = 0, processed_fail = 0
WHERE url IN (
	SELECT url FROM %s
	WHERE fetch_ok > 0 AND (processed_ok <> 0 OR processed_fail <> 0)
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)`, table, table)

	tag, err := s.pool.Exec(ctx, query, limit)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, store.ErrShardMissing
		}
		return 0, fmt.Errorf("reset shard %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func scanDocs(ctx context.Context, tx pgx.Tx, query string, args []any) ([]*pipeline.Document, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*pipeline.Document
	for rows.Next() {
		doc := &pipeline.Document{}
		if err := rows.Scan(
			&doc.URL,
			&doc.Domain,
			&doc.ContentPath,
			&doc.FetchOK,
			&doc.InlinkCount,
			&doc.DomainScore,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

type page struct {
	tx    pgx.Tx
	table string
	docs  []*pipeline.Document
}

func (p *page) Docs() []*pipeline.Document { return p.docs }

// Finish writes every document's terminal flags and commits once. A single
// document's failure never rolls back its page-mates.
func (p *page) Finish(ctx context.Context, results []store.Result) error {
	acceptSQL := fmt.Sprintf(
		`UPDATE %s SET processed_ok = 1, index_priority = $1 WHERE url = $2`, p.table)
	rejectSQL := fmt.Sprintf(
		`UPDATE %s SET processed_fail = 1, index_priority = -1, rejection_reason = $1 WHERE url = $2`,
		p.table)

	for _, res := range results {
		var err error
		if res.Accepted {
			_, err = p.tx.Exec(ctx, acceptSQL, res.Priority, res.URL)
		} else {
			_, err = p.tx.Exec(ctx, rejectSQL, res.Reason, res.URL)
		}
		if err != nil {
			_ = p.tx.Rollback(ctx)
			return fmt.Errorf("update %s: %w", res.URL, err)
		}
	}

	if err := p.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit page: %w", err)
	}
	return nil
}

func (p *page) Release(ctx context.Context) error {
	if err := p.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback page: %w", err)
	}
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}
