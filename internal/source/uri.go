package source

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Driver names registered with database/sql
const (
	DriverClickHouse = "clickhouse"
	DriverPostgres   = "postgres"
)

// DefaultDatabase is used when the URI has no path
const DefaultDatabase = "default"

// Endpoint is a parsed connection URI
type Endpoint struct {
	Driver   string
	Protocol clickhouse.Protocol
	Host     string
	Port     string
	Database string
	Secure   bool
	// User and Password are set only when the URI carries credentials
	User     string
	Password string

	raw *url.URL
}

// Addr returns host:port
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, e.Port)
}

var defaultPorts = map[string]string{
	"http":       "8123",
	"https":      "8443",
	"clickhouse": "9000",
	"tcp":        "9000",
	"postgres":   "5432",
	"postgresql": "5432",
}

// ParseURI parses scheme://host:port/database. The scheme selects the driver
// and protocol; a missing port falls back to the scheme's usual port.
func ParseURI(uri string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid uri %q: %w", uri, err)
	}

	scheme := strings.ToLower(u.Scheme)
	port, known := defaultPorts[scheme]
	if !known {
		return Endpoint{}, fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("uri %q has no host", uri)
	}
	if p := u.Port(); p != "" {
		port = p
	}

	ep := Endpoint{
		Host:     u.Hostname(),
		Port:     port,
		Database: strings.ReplaceAll(u.Path, "/", ""),
		raw:      u,
	}
	if ep.Database == "" {
		ep.Database = DefaultDatabase
	}
	if u.User != nil {
		ep.User = u.User.Username()
		ep.Password, _ = u.User.Password()
	}

	switch scheme {
	case "http", "https":
		ep.Driver = DriverClickHouse
		ep.Protocol = clickhouse.HTTP
		ep.Secure = scheme == "https"
	case "clickhouse", "tcp":
		ep.Driver = DriverClickHouse
		ep.Protocol = clickhouse.Native
		ep.Secure = u.Query().Get("secure") == "true"
	default:
		ep.Driver = DriverPostgres
		ep.Secure = u.Query().Get("sslmode") != "disable"
	}

	return ep, nil
}
