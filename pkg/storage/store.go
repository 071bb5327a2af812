// Package storage defines the key-value persistence boundary spec.md
// places out of scope ("the embedded key-value persistence layer").
// Store is the thin interface the Engine Facade depends on; BoltStore is
// the one concrete, ambient implementation this module ships.
package storage

// Store saves and loads opaque byte blobs under string keys. The engine
// uses a single key, "full_config" (see ConfigKey), but the interface is
// not restricted to that.
type Store interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, bool, error)
	Close() error
}

// ConfigKey is the key under which the engine's persisted configuration
// blob is stored (§4.H, §6).
const ConfigKey = "full_config"
