package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver

	"channelcast/internal/apierr"
)

// DB is the global database connection.
var DB *sqlx.DB

// InitDB opens and pings the Postgres connection.
func InitDB(dbURL string) error {
	if dbURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	DB = conn
	return nil
}

// notFound turns sql.ErrNoRows into a classified not-found error and wraps everything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.NotFound(what)
	}
	return fmt.Errorf("query %s: %w", what, err)
}
