// Package storage defines the durable key-value store behind the MedLog
// collections. Values are opaque text documents; one key per collection.
package storage

const keyPrefix = "medlog_pro_data_v1"

// Collection keys. Each collection round-trips through its own key so a
// corrupt entry degrades independently of the others.
const (
	KeyMedications = keyPrefix + "_meds"
	KeyLogs        = keyPrefix + "_logs"
	KeyDependents  = keyPrefix + "_dependents"
	KeyProfile     = keyPrefix + "_profile"
)

// Keys lists every collection key.
var Keys = []string{KeyMedications, KeyLogs, KeyDependents, KeyProfile}

// Provider is the interface for durable key-value operations.
type Provider interface {
	// Get returns the value stored at key, or apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Put durably stores value at key, replacing any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Close releases any underlying resources.
	Close() error
}
