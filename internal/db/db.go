package db

import (
	"context"
	"log"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Row and Rows mirror the pgx result types so that services can be exercised
// against fakes in tests.
type Row interface {
	Scan(dest ...interface{}) error
}

type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close()
	Err() error
}

type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) Row
}

// DB is the query surface shared by the pool, an acquired connection and a
// transaction in progress.
type DB interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
}

type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Conn is one dedicated connection checked out of the pool. Release must be
// called exactly once on every exit path.
type Conn interface {
	DB
	Release()
}

// Acquirer hands out dedicated connections. The subscription filter acquires
// one per delivery check, never for the lifetime of a subscription.
type Acquirer interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Store is what the handlers hold: pool-level queries plus connection
// checkout. *Pool and the test fake implement it.
type Store interface {
	DB
	Acquirer
}

type Pool struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, databaseURL string) (*Pool, error) {
	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		log.Printf("Error connecting to database: %v", err)
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Close() {
	p.pool.Close()
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *Pool) Query(ctx context.Context, sql string, args ...interface{}) (Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...interface{}) Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

func (p *Pool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: conn}, nil
}

// WithConn runs fn with a dedicated connection and releases it on every exit
// path, including panics.
func WithConn(ctx context.Context, a Acquirer, fn func(conn Conn) error) error {
	conn, err := a.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}
