package config

import "errors"

var (
	errEmptyIntervals    = errors.New("at least one bar interval is required")
	errUnknownInterval   = errors.New("interval tag must end in m, h, or d")
	errInvalidRetention  = errors.New("must be positive")
	errInvalidShardCount = errors.New("must be positive")
	errEmptyDataDir      = errors.New("config: data directories must not be empty")
)
