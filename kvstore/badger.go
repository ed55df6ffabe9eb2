package kvstore

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// BadgerStore is the production KV store, backed by an embedded
// github.com/dgraph-io/badger/v4 database. It satisfies the same contract
// as MemoryStore but persists to PIPELESS_KVS_DIR.
type BadgerStore struct {
	db  *badger.DB
	log zerolog.Logger
}

// OpenBadgerStore opens (creating if absent) a badger database at dir.
func OpenBadgerStore(dir string, log zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, log: log}, nil
}

// Set inserts key/value, logging (not returning) an error, matching the
// contract's "must not interrupt frame processing" behavior.
func (b *BadgerStore) Set(key, value string) {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		b.log.Error().Err(err).Str("key", key).Msg("kv store set failed")
	}
}

// Get returns the stored value, or an empty string on miss or error.
func (b *BadgerStore) Get(key string) string {
	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = string(v)
			return nil
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			b.log.Error().Err(err).Str("key", key).Msg("kv store get failed")
		}
		return ""
	}
	return value
}

// Clean removes every key with the given prefix — the Dispatcher's
// per-pipeline cleanup on entry removal.
func (b *BadgerStore) Clean(prefix string) {
	prefixBytes := []byte(prefix)
	err := b.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.log.Warn().Err(err).Str("prefix", prefix).Msg("kv store clean failed")
	}
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
