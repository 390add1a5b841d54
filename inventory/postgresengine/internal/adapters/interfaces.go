package adapters

import "context"

// TxMode selects the connection and the access mode of a transaction.
type TxMode int

const (
	// ReadWrite runs on the primary.
	ReadWrite TxMode = iota

	// ReadOnlyPrimary is a read-only transaction on the primary.
	ReadOnlyPrimary

	// ReadOnlyReplica is a read-only transaction on the replica if one is configured, else on the primary.
	ReadOnlyReplica
)

func (m TxMode) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case ReadOnlyPrimary:
		return "read_only_primary"
	case ReadOnlyReplica:
		return "read_only_replica"
	default:
		return "unknown"
	}
}

// DBAdapter defines the interface for database operations needed by the store.
type DBAdapter interface {
	Begin(ctx context.Context, mode TxMode) (DBTx, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBTx is one open transaction.
type DBTx interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
