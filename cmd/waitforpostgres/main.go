// Command waitforpostgres blocks until the database named by DATABASE_URL
// accepts connections. Compose and CI run it before migrations.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/sethvargo/go-retry"
)

const pingTimeout = 2 * time.Second

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(2)
	}
	timeout, err := timeoutFromEnv(os.Getenv("WAIT_FOR_POSTGRES_TIMEOUT_SEC"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open postgres: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := waitForPing(context.Background(), db.PingContext, timeout); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready within %s: %v\n", timeout, err)
		os.Exit(1)
	}
	fmt.Println("postgres ready")
}

func timeoutFromEnv(raw string) (time.Duration, error) {
	if raw == "" {
		return 60 * time.Second, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid WAIT_FOR_POSTGRES_TIMEOUT_SEC: %q", raw)
	}
	return time.Duration(secs) * time.Second, nil
}

// waitForPing retries ping with a capped exponential backoff until it
// succeeds or timeout elapses.
func waitForPing(ctx context.Context, ping func(context.Context) error, timeout time.Duration) error {
	b := retry.WithMaxDuration(timeout, retry.WithCappedDuration(2*time.Second, retry.NewExponential(100*time.Millisecond)))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
