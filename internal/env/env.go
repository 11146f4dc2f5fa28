// Package env provides a thin read-through view of the OS environment
// block for the daemon ritual's own use (IFS/PATH defaulting, and the
// USER/LOGNAME/HOME triple written after a credential switch).
//
// It exists as its own type, rather than calling os.Getenv/os.Setenv
// directly from the ritual. Snapshot is a concrete type and
// daemon.Process holds it directly, so the ritual always reads and
// writes the real OS environment.
package env

import "os"

// Snapshot is a process-wide read-through view of the OS environment.
type Snapshot struct{}

// System returns the Snapshot backed by the real OS environment.
func System() Snapshot { return Snapshot{} }

// Lookup returns the value of key and whether it was set.
func (Snapshot) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Set assigns key=value, overwriting any existing value.
func (Snapshot) Set(key, value string) error {
	return os.Setenv(key, value)
}

// SetIfUnset assigns key=value only when key is not already set.
// Returns true if the value was written.
func (s Snapshot) SetIfUnset(key, value string) (bool, error) {
	if _, ok := s.Lookup(key); ok {
		return false, nil
	}
	return true, s.Set(key, value)
}
