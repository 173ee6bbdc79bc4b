package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	apperrors "chxlsx/internal/errors"
)

// Options describes how to reach the database
type Options struct {
	URI      string
	User     string
	Password string
	// DialTimeout bounds connecting and the initial ping
	DialTimeout time.Duration
	// QueryTimeout bounds reads from a running query
	QueryTimeout time.Duration
}

// Source is an open database handle
type Source struct {
	db       *sqlx.DB
	endpoint Endpoint
	logger   *slog.Logger
}

// Open connects to the database named by opts.URI and verifies the
// connection with a ping
func Open(ctx context.Context, opts Options) (*Source, error) {
	ep, err := ParseURI(opts.URI)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid database uri", err)
	}

	var db *sqlx.DB
	switch ep.Driver {
	case DriverClickHouse:
		db = sqlx.NewDb(clickhouse.OpenDB(clickhouseOptions(ep, opts)), DriverClickHouse)
	case DriverPostgres:
		db, err = sqlx.Open(DriverPostgres, postgresDSN(ep, opts))
		if err != nil {
			return nil, apperrors.NewConnectivityError("failed to open postgres connection", err)
		}
	}

	logger := slog.Default().With(
		slog.String("component", "source"),
		slog.String("driver", ep.Driver),
		slog.String("addr", ep.Addr()),
		slog.String("database", ep.Database))

	pingCtx := ctx
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.NewConnectivityError(fmt.Sprintf("failed to connect to %s", ep.Addr()), err).
			WithContext("driver", ep.Driver)
	}

	logger.InfoContext(ctx, "Connected to database")

	return &Source{db: db, endpoint: ep, logger: logger}, nil
}

// Endpoint returns the parsed connection target
func (s *Source) Endpoint() Endpoint {
	return s.endpoint
}

// Query executes query and returns a cursor over its rows
func (s *Source) Query(ctx context.Context, query string) (*Cursor, error) {
	start := time.Now()
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewQueryError("query failed", err)
	}

	cursor, err := newCursor(rows)
	if err != nil {
		rows.Close()
		return nil, apperrors.NewQueryError("failed to read result columns", err)
	}

	s.logger.InfoContext(ctx, "Query opened",
		slog.Int("columns", len(cursor.Columns())),
		slog.Duration("latency", time.Since(start)))
	return cursor, nil
}

// Close releases the connection pool
func (s *Source) Close() error {
	return s.db.Close()
}

func clickhouseOptions(ep Endpoint, opts Options) *clickhouse.Options {
	user, password := ep.User, ep.Password
	if opts.User != "" {
		user = opts.User
	}
	if opts.Password != "" {
		password = opts.Password
	}

	co := &clickhouse.Options{
		Protocol: ep.Protocol,
		Addr:     []string{ep.Addr()},
		Auth: clickhouse.Auth{
			Database: ep.Database,
			Username: user,
			Password: password,
		},
		DialTimeout: opts.DialTimeout,
		ReadTimeout: opts.QueryTimeout,
	}
	if ep.Secure {
		co.TLS = &tls.Config{ServerName: ep.Host}
	}
	return co
}

// postgresDSN returns the URI with credentials from opts filled in where the
// URI has none
func postgresDSN(ep Endpoint, opts Options) string {
	u := *ep.raw
	if u.User == nil && opts.User != "" {
		if opts.Password != "" {
			u.User = url.UserPassword(opts.User, opts.Password)
		} else {
			u.User = url.User(opts.User)
		}
	}
	return u.String()
}
