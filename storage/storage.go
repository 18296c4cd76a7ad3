// Package storage is the object storage client of the driver. It talks to
// OpenStack Swift (Rackspace Cloud Files is a Swift deployment) and translates
// the errors of the SDK into errors with HTTP status codes.
//
// A Client is bound to one container: the container of the file service it
// serves. Most operations still take the container name as a parameter so
// that the remote file system can address other containers when the service
// is not bound.
package storage

import (
	"context"
	"net/http"
	"time"

	"github.com/cozy/cozy-cloudfiles/cache"
	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/ncw/swift/v2"
	"github.com/sirupsen/logrus"
)

// DefaultDeleteConcurrency is the number of objects deleted in parallel when
// a container is emptied without bulk delete.
const DefaultDeleteConcurrency = 8

// Options are the optional parameters of a Client.
type Options struct {
	// Cache is used for the listings. It can be nil.
	Cache cache.Cache
	// CacheNamespace prefixes the keys of the cache. It defaults to the
	// storage URL of the account.
	CacheNamespace string
	// DeleteConcurrency is the number of parallel deletes used to empty a
	// container when the server does not support bulk delete.
	DeleteConcurrency int
	// ConnectTimeout and Timeout are passed to the swift connection.
	ConnectTimeout time.Duration
	Timeout        time.Duration
	// EndpointType is the endpoint of the catalog to use: public, internal
	// or admin. Domain is the domain of the user for Keystone v3.
	EndpointType string
	Domain       string
}

// Client is the object storage client.
type Client struct {
	conn      *swift.Connection
	container string
	cache     cache.Cache
	namespace string
	parallel  int
}

// NewClient returns a client for an already authenticated connection.
func NewClient(conn *swift.Connection, container string, opts Options) *Client {
	parallel := opts.DeleteConcurrency
	if parallel <= 0 {
		parallel = DefaultDeleteConcurrency
	}
	namespace := opts.CacheNamespace
	if namespace == "" {
		namespace = conn.StorageUrl
	}
	return &Client{
		conn:      conn,
		container: container,
		cache:     opts.Cache,
		namespace: namespace,
		parallel:  parallel,
	}
}

// Connect authenticates to the object store with the given credentials, and
// makes sure that the container the client is bound to exists.
func Connect(ctx context.Context, creds Credentials, container string, opts Options) (*Client, error) {
	conn := creds.Connection()
	if opts.ConnectTimeout > 0 {
		conn.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.Timeout > 0 {
		conn.Timeout = opts.Timeout
	}
	if opts.EndpointType != "" {
		conn.EndpointType = swift.EndpointType(opts.EndpointType)
	}
	if opts.Domain != "" {
		conn.Domain = opts.Domain
	}
	if err := conn.Authenticate(ctx); err != nil {
		return nil, errshttp.Wrap(http.StatusInternalServerError,
			"Failed to launch OpenStack service: ", err)
	}

	c := NewClient(conn, container, opts)
	if container != "" {
		exists, err := c.ContainerExists(ctx, container)
		if err != nil {
			return nil, errshttp.Wrap(http.StatusInternalServerError,
				"Failed to launch OpenStack service: ", err)
		}
		if !exists {
			logrus.WithField("container", container).Info("Creating container")
			if _, err := c.CreateContainer(ctx, container, nil); err != nil {
				return nil, errshttp.Wrap(http.StatusInternalServerError,
					"Failed to launch OpenStack service: ", err)
			}
		}
	}
	return c, nil
}

// Container returns the name of the container the client is bound to.
func (c *Client) Container() string {
	return c.container
}

// Connection returns the underlying swift connection.
func (c *Client) Connection() *swift.Connection {
	return c.conn
}
