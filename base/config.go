// Package base contains the parameters and the services configured for the
// process. They are set by the config package, and used by the web and cmd
// packages.
package base

import (
	"time"

	"github.com/cozy/cozy-cloudfiles/cache"
	"github.com/cozy/cozy-cloudfiles/storage"
	"github.com/cozy/cozy-cloudfiles/svcconfig"
)

// DefaultChunkSize is the number of bytes of a ranged request when a blob is
// streamed.
const DefaultChunkSize = 1 << 20

// ConfigParameters is a list of parameters that can be configured.
type ConfigParameters struct {
	// ChunkSize is the size of the ranged requests used to stream a blob
	ChunkSize int64
	// Container is the container the service is bound to. It can be empty
	// to serve all the containers of the account.
	Container string
	// ServiceID identifies the service configuration in the config store
	ServiceID string
	// DeleteConcurrency is the number of objects deleted in parallel when a
	// container is forced to be deleted
	DeleteConcurrency int

	CacheTTL  time.Duration
	CacheSize int
}

var (
	// Config is the configured parameters.
	Config ConfigParameters

	// Storage is the object storage client.
	Storage *storage.Client

	// ConfigStore keeps the service configurations.
	ConfigStore svcconfig.Store

	// ListingsCache is used by Storage for the container and blob listings.
	ListingsCache cache.Cache

	// DatabaseNamespace is the prefix of the CouchDB databases.
	DatabaseNamespace string
)
