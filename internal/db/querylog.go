package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"

	sqlite3 "github.com/mattn/go-sqlite3"
)

type queryLogConnector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
	logger *slog.Logger
}

// NewLoggingConnector returns a connector for sql.OpenDB whose connections
// log every statement and its arguments at debug level. A nil logger means
// slog.Default().
func NewLoggingConnector(dsn string, logger *slog.Logger) (driver.Connector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &queryLogConnector{dsn: dsn, driver: &sqlite3.SQLiteDriver{}, logger: logger}, nil
}

func (c *queryLogConnector) Driver() driver.Driver { return c.driver }

func (c *queryLogConnector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	sc, ok := conn.(*sqlite3.SQLiteConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected sqlite3 connection %T", conn)
	}
	return &queryLogConn{SQLiteConn: sc, logger: c.logger}, nil
}

// queryLogConn keeps every sqlite3 capability and intercepts the direct
// exec and query paths, which database/sql uses for all store statements
// and for multi-statement migration scripts.
type queryLogConn struct {
	*sqlite3.SQLiteConn
	logger *slog.Logger
}

func (c *queryLogConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.log(ctx, "exec", query, args)
	return c.SQLiteConn.ExecContext(ctx, query, args)
}

func (c *queryLogConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.log(ctx, "query", query, args)
	return c.SQLiteConn.QueryContext(ctx, query, args)
}

func (c *queryLogConn) log(ctx context.Context, op, query string, args []driver.NamedValue) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	vals := make([]string, len(args))
	for i, a := range args {
		vals[i] = formatArg(a)
	}
	c.logger.DebugContext(ctx, "sql", "op", op, "sql", query, "args", vals)
}

func formatArg(a driver.NamedValue) string {
	var s string
	switch v := a.Value.(type) {
	case nil:
		s = "NULL"
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	if a.Name != "" {
		return a.Name + "=" + s
	}
	return s
}
