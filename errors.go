package datacenter

import "errors"

var (
	// Configuration errors
	ErrConfigNil             = errors.New("config is nil")
	ErrUnknownBarInterval    = errors.New("unknown bar interval tag")
	ErrInvalidRetentionDays  = errors.New("retention_days must be positive")
	ErrInvalidShardCount     = errors.New("append log shard count must be positive")
	ErrBaseDataDirEmpty      = errors.New("base data directory must not be empty")

	// Dependency / lifecycle errors
	ErrCircularDependency  = errors.New("circular dependency detected among components")
	ErrComponentNotFound   = errors.New("component not registered")
	ErrAlreadyRegistered   = errors.New("component already registered")
	ErrSupervisorNotRunning = errors.New("supervisor is not running")

	// EventBus errors
	ErrBusStopped     = errors.New("event bus is stopped")
	ErrQueueFull      = errors.New("event queue is full")
	ErrNoSubscribers  = errors.New("no subscribers for topic")

	// Ingestion errors
	ErrNilTick          = errors.New("tick is nil")
	ErrMissingLastPrice = errors.New("tick has no last price")
	ErrUnknownInstrument = errors.New("instrument not present in registry")

	// Storage errors
	ErrHotStoreClosed    = errors.New("hot store is closed")
	ErrAppendLogClosed   = errors.New("append log is closed")
	ErrColdArchiveClosed = errors.New("cold archive is closed")
	ErrFlushFailed       = errors.New("flush failed")
	ErrNoSuchPartition   = errors.New("no such partition")
)
