// Package kvmod is a native module exposing a persistent key/value
// store to scripts. All five operations share one native body; the
// magic of the function object selects the operation, so the module
// costs a single closure regardless of how many stores are open.
package kvmod

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/corvid-lang/corvid/pkg/engine"
)

// Operation selectors stored as function magic.
const (
	opGet = iota
	opPut
	opDel
	opHas
	opClose
)

// Store is a string-to-string table backed by SQLite. Use ":memory:"
// as the DSN for an ephemeral store.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) a store at the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("kvmod: open %s: %w", dsn, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvmod: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get reads a key. The second return reports presence.
func (s *Store) Get(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Put writes a key, replacing any existing value.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	return err
}

// Del removes a key. Removing a missing key is not an error.
func (s *Store) Del(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE k = ?`, key)
	return err
}

// Has reports whether a key is present.
func (s *Store) Has(key string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM kv WHERE k = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Push builds the module object on the stack: get/put/del/has/close
// methods, each the shared dispatch body tagged with its operation
// magic. The object is left on top and also returned.
func (s *Store) Push(c *engine.Context) *engine.PlainObject {
	methods := []struct {
		name  string
		magic int
		arity int
	}{
		{"get", opGet, 1},
		{"put", opPut, 2},
		{"del", opDel, 1},
		{"has", opHas, 1},
		{"close", opClose, 0},
	}

	c.RequireStack(len(methods) + 2)
	obj := c.PushNewObject()
	for _, m := range methods {
		c.PushNativeFunc(s.dispatch, m.name, m.arity)
		c.SetMagic(-1, m.magic)
		c.PutPropString(-2, m.name)
	}
	return obj
}

// dispatch is the shared native body. The operation is read from the
// magic of the currently executing function.
func (s *Store) dispatch(c *engine.Context) (int, error) {
	switch c.GetCurrentMagic() {
	case opGet:
		v, ok, err := s.Get(c.RequireString(0))
		if err != nil {
			return 0, err
		}
		c.RequireStack(1)
		if !ok {
			c.PushUndefined()
		} else {
			c.PushString(v)
		}
		return 1, nil

	case opPut:
		if err := s.Put(c.RequireString(0), c.RequireString(1)); err != nil {
			return 0, err
		}
		return 0, nil

	case opDel:
		if err := s.Del(c.RequireString(0)); err != nil {
			return 0, err
		}
		return 0, nil

	case opHas:
		ok, err := s.Has(c.RequireString(0))
		if err != nil {
			return 0, err
		}
		c.RequireStack(1)
		c.PushBool(ok)
		return 1, nil

	case opClose:
		return 0, s.Close()

	default:
		return 0, fmt.Errorf("kvmod: unknown operation %d", c.GetCurrentMagic())
	}
}
