package postgresengine_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine/internal/adapters"
)

// fakeDB is a scripted adapters.DBAdapter.
// Queries are answered by the first response whose fragment is contained in the SQL.
type fakeDB struct {
	mu        sync.Mutex
	modes     []adapters.TxMode
	statement []string
	responses []fakeResponse
	commits   int
	rollbacks int
	beginErr  error
	commitErr error
}

type fakeResponse struct {
	fragment     string
	rows         [][]any
	rowsAffected int64
	err          error
}

func newFakeDB(responses ...fakeResponse) *fakeDB {
	return &fakeDB{responses: responses}
}

func (db *fakeDB) Begin(_ context.Context, mode adapters.TxMode) (adapters.DBTx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.modes = append(db.modes, mode)
	if db.beginErr != nil {
		return nil, db.beginErr
	}

	return &fakeTx{db: db}, nil
}

func (db *fakeDB) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	response := db.answer(query)

	return fakeResult(response.rowsAffected), response.err
}

func (db *fakeDB) answer(query string) fakeResponse {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.statement = append(db.statement, query)

	for _, r := range db.responses {
		if strings.Contains(query, r.fragment) {
			return r
		}
	}

	return fakeResponse{rowsAffected: 1}
}

func (db *fakeDB) statements() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	return append([]string(nil), db.statement...)
}

func (db *fakeDB) lastMode() adapters.TxMode {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.modes[len(db.modes)-1]
}

type fakeTx struct {
	db *fakeDB
}

func (tx *fakeTx) Query(_ context.Context, query string) (adapters.DBRows, error) {
	response := tx.db.answer(query)
	if response.err != nil {
		return nil, response.err
	}

	return &fakeRows{rows: response.rows, index: -1}, nil
}

func (tx *fakeTx) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	response := tx.db.answer(query)

	return fakeResult(response.rowsAffected), response.err
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	tx.db.commits++

	return tx.db.commitErr
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	tx.db.rollbacks++

	return nil
}

type fakeRows struct {
	rows  [][]any
	index int
}

func (r *fakeRows) Next() bool {
	r.index++
	return r.index < len(r.rows)
}

// Scan supports the destination types the store scans into.
func (r *fakeRows) Scan(dest ...any) error {
	for i, d := range dest {
		value := r.rows[r.index][i]

		switch target := d.(type) {
		case *string:
			*target = value.(string)
		case *int:
			*target = value.(int)
		case *bool:
			*target = value.(bool)
		case *time.Time:
			*target = value.(time.Time)
		case **string:
			if value == nil {
				*target = nil
			} else {
				s := value.(string)
				*target = &s
			}
		case **time.Time:
			if value == nil {
				*target = nil
			} else {
				t := value.(time.Time)
				*target = &t
			}
		}
	}

	return nil
}

func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { return nil }

type fakeResult int64

func (r fakeResult) RowsAffected() (int64, error) {
	return int64(r), nil
}
