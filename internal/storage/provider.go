package storage

import "time"

// SessionMetadata describes one telemetry session file on disk.
type SessionMetadata struct {
	Name      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider abstracts the telemetry directory for the index and watcher.
type Provider interface {
	List() ([]SessionMetadata, error)
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Remove(name string) error
}
