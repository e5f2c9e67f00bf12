// Package store implements the transactional multi-table key-value layer
// (§4.2): one MDBX environment, one sub-database per §3.4 table, snapshot
// read transactions and a single writer.
package store

import (
	"fmt"
	"os"

	"github.com/erigontech/mdbx-go/mdbx"
	"github.com/sirupsen/logrus"
)

// schemaVersion is the current on-disk format version, recorded under
// meta["version"]. Opening a store with a lower version runs the upgrade
// hooks registered in upgrades; a store with a higher version refuses to
// open (§4.2).
const schemaVersion = 1

var log = logrus.WithField("component", "store")

// Store owns one MDBX environment and the DBI handle for every §3.4 table.
type Store struct {
	env  *mdbx.Env
	dbis map[string]mdbx.DBI
}

// Open creates or opens the database file at path, creating any missing
// tables and running schema upgrades inside one transaction.
func Open(path string) (*Store, error) {
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("store: new env: %w", err)
	}
	if err := env.SetOption(mdbx.OptMaxDB, uint64(len(allTables))); err != nil {
		env.Close()
		return nil, fmt.Errorf("store: set max dbs: %w", err)
	}
	// -1 geometry args let MDBX pick sane growth defaults; callers that need
	// a fixed ceiling can reopen with a tuned geometry later.
	if err := env.SetGeometry(-1, -1, -1, -1, -1, -1); err != nil {
		env.Close()
		return nil, fmt.Errorf("store: set geometry: %w", err)
	}
	if err := env.Open(path, mdbx.NoSubdir, os.FileMode(0o600)); err != nil {
		env.Close()
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	s := &Store{env: env, dbis: make(map[string]mdbx.DBI, len(allTables))}
	err = env.Update(func(txn *mdbx.Txn) error {
		for _, name := range allTables {
			dbi, err := txn.OpenDBISimple(name, mdbx.Create)
			if err != nil {
				return fmt.Errorf("open table %s: %w", name, err)
			}
			s.dbis[name] = dbi
		}
		return s.ensureSchema(&Txn{txn: txn, s: s})
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema reads meta["version"], refuses to open a newer-format store
// (downgrades are unsupported, §6.5) and runs any pending upgrade hooks in
// the same write transaction as table creation.
func (s *Store) ensureSchema(txn *Txn) error {
	cur, ok, err := txn.GetMetaVersion()
	if err != nil {
		return err
	}
	if !ok {
		return txn.PutMetaVersion(schemaVersion)
	}
	if cur > schemaVersion {
		return fmt.Errorf("store: on-disk schema version %d newer than supported %d", cur, schemaVersion)
	}
	for v := cur; v < schemaVersion; v++ {
		upgrade, ok := upgrades[v]
		if !ok {
			break
		}
		log.Infof("running schema upgrade from version %d", v)
		if err := upgrade(txn); err != nil {
			return fmt.Errorf("schema upgrade from %d: %w", v, err)
		}
	}
	return txn.PutMetaVersion(schemaVersion)
}

// upgrades maps "from version" to the function that migrates a store at
// that version forward by one step. Empty for the initial format.
var upgrades = map[uint32]func(*Txn) error{}

// Close releases the underlying MDBX environment.
func (s *Store) Close() error {
	s.env.Close()
	return nil
}

// Update runs fn inside a single read-write transaction. Any error returned
// by fn aborts the transaction; a nil return commits it. MDBX serializes
// writers, matching the single-writer model §4.2/§5 require.
func (s *Store) Update(fn func(*Txn) error) error {
	return s.env.Update(func(txn *mdbx.Txn) error {
		return fn(&Txn{txn: txn, s: s})
	})
}

// View runs fn inside a read-only MVCC snapshot transaction. Readers never
// block writers and vice versa.
func (s *Store) View(fn func(*Txn) error) error {
	return s.env.View(func(txn *mdbx.Txn) error {
		return fn(&Txn{txn: txn, s: s})
	})
}
