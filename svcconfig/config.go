// Package svcconfig persists the configuration of a Cloud Files service: the
// credentials of the object store, the container it is bound to and its
// public paths.
//
// The configuration is split in two documents, like the file services do: one
// for the object store and one for the public paths. They are merged when the
// configuration is read, and updated together.
package svcconfig

import (
	"context"

	"github.com/cozy/cozy-cloudfiles/storage"
	multierror "github.com/hashicorp/go-multierror"
)

// StorageType is the only storage type of a Cloud Files service.
const StorageType = "rackspace"

// Config is the configuration of a service.
type Config struct {
	ServiceID   string   `json:"service_id"`
	Username    string   `json:"username,omitempty"`
	Password    string   `json:"password,omitempty"`
	TenantName  string   `json:"tenant_name,omitempty"`
	APIKey      string   `json:"api_key,omitempty"`
	URL         string   `json:"url,omitempty"`
	Region      string   `json:"region,omitempty"`
	StorageType string   `json:"storage_type,omitempty"`
	Container   string   `json:"container,omitempty"`
	PublicPath  []string `json:"public_path,omitempty"`
}

// Store is where the configurations of the services are kept.
type Store interface {
	// Get returns the configuration of a service. A service without
	// configuration has an empty one.
	Get(ctx context.Context, serviceID string) (*Config, error)
	// Set creates or updates the configuration of a service. The empty fields
	// of cfg do not erase the stored values.
	Set(ctx context.Context, serviceID string, cfg *Config) error
	// Remove deletes the configuration of a service.
	Remove(ctx context.Context, serviceID string) error
}

// Credentials resolves the credentials of the configuration.
func (c *Config) Credentials() (storage.Credentials, error) {
	return storage.NewCredentials(storage.CredentialsParams{
		Username:   c.Username,
		APIKey:     c.APIKey,
		Password:   c.Password,
		TenantName: c.TenantName,
		AuthURL:    c.URL,
		Region:     c.Region,
	})
}

// Validate checks that the credentials of the configuration can be resolved.
// All the invalid fields are reported, not only the first one.
func Validate(c *Config) error {
	var errm error
	if c.Username == "" {
		errm = multierror.Append(errm, storage.ErrNoUsername)
	}
	if c.APIKey == "" {
		if c.Password == "" {
			errm = multierror.Append(errm, storage.ErrNoSecret)
		}
		if c.URL == "" {
			errm = multierror.Append(errm, storage.ErrNoAuthURL)
		}
		if c.Region == "" {
			errm = multierror.Append(errm, storage.ErrNoRegion)
		}
	}
	if c.StorageType != "" && c.StorageType != StorageType {
		errm = multierror.Append(errm, errInvalidStorageType)
	}
	return errm
}

// Merge copies the non-empty fields of src into c.
func (c *Config) Merge(src *Config) {
	set := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	set(&c.Username, src.Username)
	set(&c.Password, src.Password)
	set(&c.TenantName, src.TenantName)
	set(&c.APIKey, src.APIKey)
	set(&c.URL, src.URL)
	set(&c.Region, src.Region)
	set(&c.StorageType, src.StorageType)
	set(&c.Container, src.Container)
	if src.PublicPath != nil {
		c.PublicPath = src.PublicPath
	}
}

// Field describes a field of the configuration, for the forms of the admin
// interface.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

var schema = []Field{
	{Name: "username", Label: "Username", Type: "string", Required: true,
		Description: "The user name for the service connection."},
	{Name: "password", Label: "Password", Type: "password",
		Description: "The password for the service connection, when no API key is given."},
	{Name: "tenant_name", Label: "Tenant Name", Type: "string",
		Description: "Normally your account number."},
	{Name: "api_key", Label: "API Key", Type: "password",
		Description: "The API key for the service connection (Rackspace)."},
	{Name: "url", Label: "URL", Type: "string",
		Description: "The URL of the identity service."},
	{Name: "region", Label: "Region", Type: "string",
		Description: "The region for the service connection."},
	{Name: "storage_type", Label: "Storage Type", Type: "string"},
	{Name: "container", Label: "Container", Type: "string",
		Description: "The container the service is bound to."},
	{Name: "public_path", Label: "Public Path", Type: "array",
		Description: "The paths that are readable without authentication."},
}

// Schema returns the fields of a configuration, without the service id.
func Schema() []Field {
	out := make([]Field, len(schema))
	copy(out, schema)
	return out
}
