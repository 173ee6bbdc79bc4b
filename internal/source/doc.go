// Package source opens the database a query is exported from and exposes the
// result set as a forward-only cursor.
//
// ClickHouse is reached through clickhouse-go over HTTP (http, https URIs) or
// the native protocol (clickhouse, tcp URIs). PostgreSQL URIs (postgres,
// postgresql) are served by lib/pq. Both are wrapped in sqlx.
package source
