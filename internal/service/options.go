package service

import (
	"time"

	"article-sync-server/pkg/hash"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// Logger takes slog-style alternating key/value args. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// Options carries the collaborators shared by the sync services. Zero fields
// fall back to production defaults. Services that mutate the same articles
// must share one Locks instance.
type Options struct {
	Hasher   hash.Hasher
	Clock    Clock
	IDs      IDGenerator
	Logger   Logger
	Locks    *KeyedMutex
	Notifier Notifier
}

func (o Options) withDefaults() Options {
	if o.Hasher == nil {
		o.Hasher = hash.FNVHasher{}
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.IDs == nil {
		o.IDs = UUIDGenerator{}
	}
	if o.Logger == nil {
		o.Logger = NopLogger{}
	}
	if o.Locks == nil {
		o.Locks = NewKeyedMutex()
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	return o
}
