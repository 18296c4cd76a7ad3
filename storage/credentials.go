package storage

import (
	"errors"
	"net/url"
	"strings"

	"github.com/ncw/swift/v2"
)

// Rackspace defaults, used when the credentials carry an API key.
const (
	RackspaceAuthURL = "https://identity.api.rackspacecloud.com/"
	RackspaceRegion  = "DFW"
)

// Errors returned when the credentials can't be resolved.
var (
	ErrNoUsername = errors.New("Object Store username can not be empty.")
	ErrNoSecret   = errors.New("Object Store credentials must contain an API key or a password.")
	ErrNoAuthURL  = errors.New("Object Store authentication URL can not be empty.")
	ErrNoRegion   = errors.New("Object Store region can not be empty.")
)

// Credentials are the credentials used to authenticate to the object store.
// It is either RackspaceCredentials or OpenStackCredentials.
type Credentials interface {
	// Connection returns a swift connection, not yet authenticated.
	Connection() *swift.Connection
	credentials()
}

// RackspaceCredentials authenticate with an API key on Rackspace identity.
type RackspaceCredentials struct {
	Username   string
	APIKey     string
	TenantName string
	AuthURL    string
	Region     string
}

// OpenStackCredentials authenticate with a password on a Keystone server.
type OpenStackCredentials struct {
	Username   string
	Password   string
	TenantName string
	AuthURL    string
	Region     string
}

// CredentialsParams are the raw parameters of a service configuration.
type CredentialsParams struct {
	Username   string
	APIKey     string
	Password   string
	TenantName string
	AuthURL    string
	Region     string
}

// NewCredentials resolves the parameters to Rackspace credentials if an API
// key is given, or to OpenStack credentials if a password is given.
func NewCredentials(p CredentialsParams) (Credentials, error) {
	if p.Username == "" {
		return nil, ErrNoUsername
	}

	if p.APIKey != "" {
		authURL := p.AuthURL
		if authURL == "" {
			authURL = RackspaceAuthURL
		}
		region := p.Region
		if region == "" {
			region = RackspaceRegion
		}
		return RackspaceCredentials{
			Username:   p.Username,
			APIKey:     p.APIKey,
			TenantName: p.TenantName,
			AuthURL:    rackspaceIdentityURL(authURL),
			Region:     region,
		}, nil
	}

	if p.Password == "" {
		return nil, ErrNoSecret
	}
	if p.AuthURL == "" {
		return nil, ErrNoAuthURL
	}
	if p.Region == "" {
		return nil, ErrNoRegion
	}
	return OpenStackCredentials{
		Username:   p.Username,
		Password:   p.Password,
		TenantName: p.TenantName,
		AuthURL:    p.AuthURL,
		Region:     p.Region,
	}, nil
}

// rackspaceIdentityURL drops the version part of the path of the URL, if any,
// and points it to the v2.0 identity API.
// ex: https://identity.api.rackspacecloud.com/v1.1 -> https://identity.api.rackspacecloud.com/v2.0
func rackspaceIdentityURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return withIdentityVersion(u)
	}
	parsed.Path = withIdentityVersion(parsed.Path)
	parsed.RawPath = ""
	return parsed.String()
}

func withIdentityVersion(p string) string {
	if pos := strings.Index(strings.ToLower(p), "/v"); pos >= 0 {
		p = p[:pos]
	}
	return strings.TrimSuffix(p, "/") + "/v2.0"
}

func (r RackspaceCredentials) Connection() *swift.Connection {
	return &swift.Connection{
		UserName:    r.Username,
		ApiKey:      r.APIKey,
		AuthUrl:     r.AuthURL,
		Tenant:      r.TenantName,
		Region:      r.Region,
		AuthVersion: 2,
	}
}

func (o OpenStackCredentials) Connection() *swift.Connection {
	return &swift.Connection{
		UserName: o.Username,
		ApiKey:   o.Password, // Password
		AuthUrl:  o.AuthURL,
		Tenant:   o.TenantName, // Project name
		Region:   o.Region,
	}
}

func (RackspaceCredentials) credentials() {}
func (OpenStackCredentials) credentials() {}
