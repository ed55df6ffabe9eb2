// Package kvstore implements the key-value store external collaborator
// contract: set/get/clean, namespaced per pipeline and stage by the
// Frame-Path Executor, cleaned up per pipeline by the Dispatcher on entry
// removal.
package kvstore

// Store is the KV store contract. Implementations must be thread-safe:
// it is globally shared across every stage of every stream.
type Store interface {
	// Set stores value under key. Errors are logged by the implementation,
	// not surfaced — a KV store failure must not interrupt frame
	// processing.
	Set(key, value string)
	// Get returns the stored value, or an empty string on miss or error.
	Get(key string) string
	// Clean removes every key with the given prefix.
	Clean(prefix string)
	// Close releases any underlying resources.
	Close() error
}
