package storage

import (
	"errors"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

const diskBackend = "disk"

type diskStorage struct {
	store    *badger.DB
	gcTicker *time.Ticker
	done     chan struct{}
	once     sync.Once
	log      *zap.SugaredLogger
}

func NewDiskStorage(config Config) (*diskStorage, error) {
	log := zap.L().Sugar().With("service", "disk-storage")

	opts := badger.DefaultOptions(config.Path)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithSyncWrites(false).
		WithLogger(newBadgerLogger(log))

	// open the database
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &diskStorage{
		store: db,
		done:  make(chan struct{}),
		log:   log,
	}

	// value log GC is not available in memory mode
	if !config.InMemory {
		store.gcTicker = time.NewTicker(1 * time.Minute)
		go store.gc()
	}

	log.Infow("opened disk storage", "path", config.Path, "in_memory", config.InMemory)
	return store, nil
}

func (s *diskStorage) Set(key []byte, value []byte) error {
	storageWrites.WithLabelValues(diskBackend).Inc()
	err := s.store.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return s.track(err)
}

func (s *diskStorage) Get(key []byte) ([]byte, error) {
	storageReads.WithLabelValues(diskBackend).Inc()
	var value []byte
	err := s.store.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, s.track(err)
	}

	return value, nil
}

func (s *diskStorage) Delete(key []byte) error {
	storageWrites.WithLabelValues(diskBackend).Inc()
	err := s.store.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	return s.track(err)
}

func (s *diskStorage) Contains(key []byte) bool {
	storageReads.WithLabelValues(diskBackend).Inc()
	err := s.store.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	return err == nil
}

func (s *diskStorage) Find(prefix []byte) ([]KeyValue, error) {
	storageReads.WithLabelValues(diskBackend).Inc()
	result := make([]KeyValue, 0)
	err := s.store.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			itemBytes, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, KeyValue{Key: key, Value: itemBytes})
		}

		return nil
	})

	return result, s.track(err)
}

// track translates badger errors and counts failures.
func (s *diskStorage) track(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrKeyNotFound
	case errors.Is(err, badger.ErrDBClosed):
		storageErrors.WithLabelValues(diskBackend).Inc()
		return ErrClosed
	}

	storageErrors.WithLabelValues(diskBackend).Inc()
	return err
}

func (s *diskStorage) gc() {
	const discardRatio = 0.4
	for {
		select {
		case <-s.done:
			return
		case <-s.gcTicker.C:
			for {
				if s.store.RunValueLogGC(discardRatio) != nil {
					break
				}
			}
		}
	}
}

func (s *diskStorage) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.gcTicker != nil {
			s.gcTicker.Stop()
		}
		if err := s.store.Close(); err != nil {
			s.log.Errorw("could not close disk storage", "error", err)
		}
	})
}
