package jotai

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Options configures a World.
type Options struct {
	// InitialCapacity is the number of entities each property store reserves
	// room for up front.
	InitialCapacity int
	// Logger receives lifecycle and index messages. Defaults to a slog text
	// logger on stderr at warn level.
	Logger Logger
	// Registerer, if set, receives the store's prometheus collectors.
	Registerer prometheus.Registerer
	// QueryCacheSize bounds the number of cached index-path query results.
	// Zero selects the default, a negative value disables the cache.
	QueryCacheSize int
}

const (
	defaultInitialCapacity = 1024
	defaultQueryCacheSize  = 256
)

// SetDefaults fills in every zero field.
func (o *Options) SetDefaults() {
	if o.InitialCapacity <= 0 {
		o.InitialCapacity = defaultInitialCapacity
	}
	if o.Logger == nil {
		o.Logger = NewDefaultLogger(slog.LevelWarn)
	}
	if o.QueryCacheSize == 0 {
		o.QueryCacheSize = defaultQueryCacheSize
	}
}
