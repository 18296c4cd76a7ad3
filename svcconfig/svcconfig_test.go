package svcconfig

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/cozy/cozy-cloudfiles/errshttp"
	"github.com/cozy/cozy-cloudfiles/storage"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWithoutConfig(t *testing.T) {
	s := NewMemStore("")
	cfg, err := s.Get(context.Background(), "files")
	require.NoError(t, err)
	assert.Equal(t, &Config{ServiceID: "files"}, cfg)

	_, err = s.Get(context.Background(), "")
	assert.Equal(t, http.StatusBadRequest, errshttp.StatusCode(err))
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("")
	err := s.Set(ctx, "files", &Config{
		ServiceID:  "something-else",
		Username:   "alice",
		APIKey:     "0123456789abcdef",
		TenantName: "123456",
		Region:     "IAD",
		Container:  "documents",
		PublicPath: []string{"public/"},
	})
	require.NoError(t, err)

	cfg, err := s.Get(ctx, "files")
	require.NoError(t, err)
	assert.Equal(t, "files", cfg.ServiceID)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "0123456789abcdef", cfg.APIKey)
	assert.Equal(t, "123456", cfg.TenantName)
	assert.Equal(t, "IAD", cfg.Region)
	assert.Equal(t, "documents", cfg.Container)
	assert.Equal(t, []string{"public/"}, cfg.PublicPath)
	assert.Empty(t, cfg.Password)
}

func TestSetKeepsStoredValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("")
	require.NoError(t, s.Set(ctx, "files", &Config{
		Username:   "alice",
		Password:   "secret",
		URL:        "https://keystone.example.org/v2.0",
		Region:     "RegionOne",
		PublicPath: []string{"public/"},
	}))
	require.NoError(t, s.Set(ctx, "files", &Config{Region: "RegionTwo"}))

	cfg, err := s.Get(ctx, "files")
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "RegionTwo", cfg.Region)
	assert.Equal(t, []string{"public/"}, cfg.PublicPath)

	require.NoError(t, s.Set(ctx, "files", &Config{PublicPath: []string{}}))
	cfg, err = s.Get(ctx, "files")
	require.NoError(t, err)
	assert.Empty(t, cfg.PublicPath)
}

func TestSetInvalidStorageType(t *testing.T) {
	s := NewMemStore("")
	err := s.Set(context.Background(), "files", &Config{StorageType: "azure"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, errshttp.StatusCode(err))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("")
	require.NoError(t, s.Set(ctx, "files", &Config{Username: "alice", PublicPath: []string{"a/"}}))
	require.NoError(t, s.Remove(ctx, "files"))

	cfg, err := s.Get(ctx, "files")
	require.NoError(t, err)
	assert.Empty(t, cfg.Username)
	assert.Empty(t, cfg.PublicPath)

	// Removing twice is fine
	assert.NoError(t, s.Remove(ctx, "files"))
}

func TestSecretsAreSealed(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("a long passphrase")
	require.NoError(t, s.Set(ctx, "files", &Config{Username: "alice", Password: "p4ssw0rd", APIKey: "key"}))

	raw := s.(*docStore).docs.(*memDocs).dbs[CloudFilesDBSuffix]["files"]
	assert.NotContains(t, string(raw), "p4ssw0rd")
	assert.Contains(t, string(raw), sealedPrefix)

	cfg, err := s.Get(ctx, "files")
	require.NoError(t, err)
	assert.Equal(t, "p4ssw0rd", cfg.Password)
	assert.Equal(t, "key", cfg.APIKey)
}

func TestSealer(t *testing.T) {
	s := newSealer("passphrase")
	sealed, err := s.seal("files", "p4ssw0rd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))

	opened, err := s.open("files", sealed)
	require.NoError(t, err)
	assert.Equal(t, "p4ssw0rd", opened)

	// The secret is bound to the service
	_, err = s.open("other", sealed)
	assert.Error(t, err)

	_, err = newSealer("wrong").open("files", sealed)
	assert.Error(t, err)

	_, err = newSealer("").open("files", sealed)
	assert.Equal(t, errNoPassphrase, err)

	plain, err := newSealer("").seal("files", "p4ssw0rd")
	require.NoError(t, err)
	assert.Equal(t, "p4ssw0rd", plain)
	opened, err = s.open("files", plain)
	require.NoError(t, err)
	assert.Equal(t, "p4ssw0rd", opened)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(&Config{Username: "alice", APIKey: "key"}))
	assert.NoError(t, Validate(&Config{
		Username: "alice",
		Password: "secret",
		URL:      "https://keystone.example.org/v3",
		Region:   "RegionOne",
	}))

	err := Validate(&Config{})
	require.Error(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 4)
	assert.Contains(t, merr.Errors, storage.ErrNoUsername)
	assert.Contains(t, merr.Errors, storage.ErrNoSecret)
	assert.Contains(t, merr.Errors, storage.ErrNoAuthURL)
	assert.Contains(t, merr.Errors, storage.ErrNoRegion)

	err = Validate(&Config{Username: "alice", APIKey: "key", StorageType: "s3"})
	assert.Error(t, err)
}

func TestCredentials(t *testing.T) {
	cfg := &Config{Username: "alice", APIKey: "key", URL: "https://identity.api.rackspacecloud.com/v1.1"}
	creds, err := cfg.Credentials()
	require.NoError(t, err)
	rackspace, ok := creds.(storage.RackspaceCredentials)
	require.True(t, ok)
	assert.Equal(t, "https://identity.api.rackspacecloud.com/v2.0", rackspace.AuthURL)
	assert.Equal(t, storage.RackspaceRegion, rackspace.Region)
}

func TestSchema(t *testing.T) {
	fields := Schema()
	require.NotEmpty(t, fields)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.NotContains(t, names, "service_id")
	assert.Contains(t, names, "api_key")
	assert.Contains(t, names, "public_path")

	// Modifying the returned slice does not change the schema
	fields[0].Name = "changed"
	assert.Equal(t, "username", Schema()[0].Name)
}

func TestCouchdbStore(t *testing.T) {
	addr := os.Getenv("COUCHDB_URL")
	if addr == "" {
		t.Skip("COUCHDB_URL is not set")
	}
	ctx := context.Background()
	client, err := NewCouchdbClient(addr, os.Getenv("COUCHDB_USER"), os.Getenv("COUCHDB_PASSWORD"))
	require.NoError(t, err)
	s, err := NewCouchdbStore(ctx, client, "cloudfiles-test", "passphrase")
	require.NoError(t, err)
	defer func() {
		_ = client.DestroyDB(ctx, "cloudfiles-test-"+CloudFilesDBSuffix)
		_ = client.DestroyDB(ctx, "cloudfiles-test-"+PublicPathDBSuffix)
	}()

	require.NoError(t, s.Set(ctx, "files", &Config{Username: "alice", APIKey: "key"}))
	require.NoError(t, s.Set(ctx, "files", &Config{Region: "ORD", PublicPath: []string{"pub/"}}))
	cfg, err := s.Get(ctx, "files")
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "ORD", cfg.Region)
	assert.Equal(t, []string{"pub/"}, cfg.PublicPath)

	require.NoError(t, s.Remove(ctx, "files"))
	cfg, err = s.Get(ctx, "files")
	require.NoError(t, err)
	assert.Empty(t, cfg.Username)
}
