package stores

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/pbudner/argosbind/bind"
	"github.com/pbudner/argosbind/encoding"
	"github.com/pbudner/argosbind/storage"
	"go.uber.org/zap"
)

var (
	recordPrefix = []byte{0x01}

	// ErrPropertyNotFound is returned when a record property was never written
	ErrPropertyNotFound = errors.New("property not found")
	// ErrInvalidKey is returned for empty ids or names and for ones holding
	// the key separator
	ErrInvalidKey = errors.New("invalid record id or property name")
)

const (
	separatorCode = 0x00
	lockStripes   = 64
)

// RecordStore keeps records made of named properties. Every property holds
// the encoded value of a bound mapping.
//
// The embedded RWMutex guards single storage calls. Whole bind cycles
// (decode, mutate, write through) run under a per-property lock, see Update.
type RecordStore struct {
	sync.RWMutex
	locks   [lockStripes]sync.Mutex
	storage storage.Storage
	codec   encoding.Codec
	log     *zap.SugaredLogger
}

func NewRecordStore(storage storage.Storage, codec encoding.Codec) *RecordStore {
	return &RecordStore{
		storage: storage,
		codec:   codec,
		log:     zap.L().Sugar().With("service", "record-store"),
	}
}

func (rs *RecordStore) Codec() encoding.Codec {
	return rs.codec
}

// NewID returns a fresh record id.
func (rs *RecordStore) NewID() string {
	return uuid.NewString()
}

func (rs *RecordStore) Record(id string) *Record {
	return &Record{id: id, store: rs}
}

// Bind binds the mapping stored in the property of record id and pushes
// initial unless it is nil. Missing properties are created empty.
//
// Later mutations of the returned binding are not serialized with other
// writers of the same property; use Update for read-modify-write cycles.
func (rs *RecordStore) Bind(id, prop string, initial interface{}) (*bind.Data, error) {
	if err := validateKey(id, prop); err != nil {
		return nil, err
	}

	mu := rs.lockFor(id, prop)
	mu.Lock()
	defer mu.Unlock()
	return rs.bind(id, prop, initial)
}

// Update binds the property of record id, creating it if needed, and runs fn
// on the binding. No other Update, Load or Delete of the same property runs
// in between, so every write fn makes is based on the latest stored value.
func (rs *RecordStore) Update(id, prop string, fn func(*bind.Data) error) (*bind.Data, error) {
	return rs.update(id, prop, true, fn)
}

// UpdateExisting is Update for properties that must already exist. It
// returns ErrPropertyNotFound instead of creating the property.
func (rs *RecordStore) UpdateExisting(id, prop string, fn func(*bind.Data) error) (*bind.Data, error) {
	return rs.update(id, prop, false, fn)
}

// Load binds an existing property without writing to it.
func (rs *RecordStore) Load(id, prop string) (*bind.Data, error) {
	return rs.update(id, prop, false, nil)
}

func (rs *RecordStore) update(id, prop string, create bool, fn func(*bind.Data) error) (*bind.Data, error) {
	if err := validateKey(id, prop); err != nil {
		return nil, err
	}

	mu := rs.lockFor(id, prop)
	mu.Lock()
	defer mu.Unlock()

	if !create && !rs.Has(id, prop) {
		return nil, ErrPropertyNotFound
	}

	d, err := rs.bind(id, prop, nil)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		if err := fn(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (rs *RecordStore) bind(id, prop string, initial interface{}) (*bind.Data, error) {
	return bind.Wrap(rs.Record(id), prop, rs.codec, initial, bind.WithLogger(rs.log.With("record", id, "property", prop)))
}

func (rs *RecordStore) lockFor(id, prop string) *sync.Mutex {
	return &rs.locks[xxhash.Sum64(encodeProperty(id, prop))%lockStripes]
}

// Has reports whether the property of record id was ever written.
func (rs *RecordStore) Has(id, prop string) bool {
	if validateKey(id, prop) != nil {
		return false
	}

	rs.RLock()
	defer rs.RUnlock()
	return rs.storage.Contains(encodeProperty(id, prop))
}

// Properties lists the property names of record id in key order.
func (rs *RecordStore) Properties(id string) ([]string, error) {
	if err := validateName("id", id); err != nil {
		return nil, err
	}

	rs.RLock()
	defer rs.RUnlock()
	prefix := encodeRecord(id)
	kvs, err := rs.storage.Find(prefix)
	if err != nil {
		return nil, err
	}

	props := make([]string, len(kvs))
	for i, kv := range kvs {
		props[i] = string(bytes.TrimPrefix(kv.Key, prefix))
	}
	return props, nil
}

// Raw returns the encoded value of a property.
func (rs *RecordStore) Raw(id, prop string) (string, error) {
	if err := validateKey(id, prop); err != nil {
		return "", err
	}

	rs.RLock()
	defer rs.RUnlock()
	value, err := rs.storage.Get(encodeProperty(id, prop))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", ErrPropertyNotFound
	}
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// Delete drops a property.
func (rs *RecordStore) Delete(id, prop string) error {
	if err := validateKey(id, prop); err != nil {
		return err
	}

	mu := rs.lockFor(id, prop)
	mu.Lock()
	defer mu.Unlock()

	rs.Lock()
	defer rs.Unlock()
	rs.log.Debugw("deleting property", "record", id, "property", prop)
	return rs.storage.Delete(encodeProperty(id, prop))
}

func (rs *RecordStore) Close() {
	rs.Lock()
	defer rs.Unlock()
	rs.storage.Close()
}

func validateKey(id, prop string) error {
	if err := validateName("id", id); err != nil {
		return err
	}
	return validateName("property", prop)
}

func validateName(kind, name string) error {
	if name == "" || strings.IndexByte(name, separatorCode) >= 0 {
		return fmt.Errorf("%w: %s %q", ErrInvalidKey, kind, name)
	}
	return nil
}

func encodeRecord(id string) []byte {
	key := make([]byte, 0, len(recordPrefix)+len(id)+1)
	key = append(key, recordPrefix...)
	key = append(key, id...)
	return append(key, separatorCode)
}

func encodeProperty(id, prop string) []byte {
	return append(encodeRecord(id), prop...)
}

// Record is a bind.Host backed by a RecordStore.
type Record struct {
	id    string
	store *RecordStore
}

func (r *Record) ID() string {
	return r.id
}

// Property returns the raw value of name, or an empty string if it was
// never written.
func (r *Record) Property(name string) (string, error) {
	raw, err := r.store.Raw(r.id, name)
	if errors.Is(err, ErrPropertyNotFound) {
		return "", nil
	}
	return raw, err
}

func (r *Record) SetProperty(name string, raw string) error {
	if err := validateKey(r.id, name); err != nil {
		return err
	}

	r.store.Lock()
	defer r.store.Unlock()
	return r.store.storage.Set(encodeProperty(r.id, name), []byte(raw))
}
