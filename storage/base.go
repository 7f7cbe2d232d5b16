package storage

// Storage is a byte oriented key/value store holding the raw values of
// bound properties.
type Storage interface {
	Set(key []byte, value []byte) error
	// Get returns ErrKeyNotFound for unknown keys.
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Contains(key []byte) bool
	// Find returns all pairs whose key starts with prefix, ordered by key.
	Find(prefix []byte) ([]KeyValue, error)
	Close()
}

type KeyValue struct {
	Key   []byte
	Value []byte
}

// Config selects where a disk storage keeps its files.
type Config struct {
	Path string
	// InMemory keeps all data in memory; Path is ignored.
	InMemory bool
}
