package flight

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
)

// advisoryLockBase namespaces this application's advisory lock keys.
const advisoryLockBase = 948512

// PgLocker coordinates refreshes across replicas with Postgres advisory
// locks. It is optional: a nil *PgLocker grants every request.
type PgLocker struct {
	dsn string
}

func NewPgLocker(dsn string) *PgLocker {
	if dsn == "" {
		return nil
	}
	return &PgLocker{dsn: dsn}
}

func lockKey(kind string) int64 {
	h := fnv.New32a()
	h.Write([]byte(kind))
	return advisoryLockBase<<32 | int64(h.Sum32())
}

// TryAcquire attempts the cluster-wide lock for kind without blocking.
// On success it returns a release func that must be called once; ok is
// false when another replica holds the lock. The session (and with it
// the lock) lives until release runs.
func (l *PgLocker) TryAcquire(ctx context.Context, kind string) (release func(), ok bool, err error) {
	if l == nil {
		return func() {}, true, nil
	}

	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return nil, false, fmt.Errorf("connect for advisory lock: %w", err)
	}

	var got bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, lockKey(kind)).Scan(&got); err != nil {
		conn.Close(context.Background())
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !got {
		conn.Close(context.Background())
		return nil, false, nil
	}

	release = func() {
		// the caller's ctx may already be cancelled; the lock must
		// still go away with the session
		ctx := context.Background()
		_, _ = conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, lockKey(kind))
		conn.Close(ctx)
	}
	return release, true, nil
}
