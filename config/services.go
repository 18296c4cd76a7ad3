package config

import (
	"context"
	"fmt"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/cache"
	"github.com/cozy/cozy-cloudfiles/storage"
	"github.com/cozy/cozy-cloudfiles/svcconfig"
	"github.com/go-redis/redis/v7"
	"github.com/ncw/swift/v2/swifttest"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const testContainer = "cloudfiles-test"

var testServer *swifttest.SwiftServer

// SetupConfigStore configures the parameters and connects the store of the
// service configurations. It is enough for the commands that don't talk to
// the object store.
func SetupConfigStore(ctx context.Context) error {
	if err := configureLogger(); err != nil {
		return err
	}
	if err := configureParameters(); err != nil {
		return err
	}
	if err := configureConfigStore(ctx); err != nil {
		return fmt.Errorf("Cannot configure the config store: %w", err)
	}
	return nil
}

// SetupServices connects the cache, config store and storage services.
func SetupServices(ctx context.Context) error {
	if err := SetupConfigStore(ctx); err != nil {
		return err
	}

	if err := configureCache(); err != nil {
		return fmt.Errorf("Cannot configure the cache: %w", err)
	}

	svc, err := serviceConfig(ctx)
	if err != nil {
		return err
	}
	creds, err := svc.Credentials()
	if err != nil {
		return fmt.Errorf("Invalid credentials for the object store: %w", err)
	}
	base.Config.Container = svc.Container

	client, err := storage.Connect(ctx, creds, svc.Container, storageOptions())
	if err != nil {
		return fmt.Errorf("Cannot access to swift: %w", err)
	}
	base.Storage = client
	return nil
}

// SetupForTests can be used to setup the services with in-memory implementations
// for tests. The object store is an in-memory swift server, stopped by
// CleanupTests.
func SetupForTests() error {
	if err := configureParameters(); err != nil {
		return err
	}
	if base.Config.Container == "" {
		base.Config.Container = testContainer
	}
	base.DatabaseNamespace = "cloudfiles-test"

	configureLRUCache()
	base.ConfigStore = svcconfig.NewMemStore(viper.GetString("config_store.secret"))

	server, err := swifttest.NewSwiftServer("localhost")
	if err != nil {
		return err
	}
	testServer = server
	creds := storage.OpenStackCredentials{
		Username: "swifttest",
		Password: "swifttest",
		AuthURL:  server.AuthURL,
		Region:   "RegionOne",
	}
	client, err := storage.Connect(context.Background(), creds, base.Config.Container, storageOptions())
	if err != nil {
		return err
	}
	base.Storage = client
	return nil
}

// CleanupTests stops the services started by SetupForTests.
func CleanupTests() error {
	if testServer != nil {
		testServer.Close()
		testServer = nil
	}
	return nil
}

// serviceConfig returns the configuration of the service: the one kept in
// the config store, overridden by the swift section of the config file.
func serviceConfig(ctx context.Context) (*svcconfig.Config, error) {
	fromFile := &svcconfig.Config{
		Username:   viper.GetString("swift.username"),
		Password:   viper.GetString("swift.password"),
		APIKey:     viper.GetString("swift.api_key"),
		TenantName: viper.GetString("swift.tenant"), // Project name
		URL:        viper.GetString("swift.auth_url"),
		Region:     viper.GetString("swift.region"),
		Container:  viper.GetString("swift.container"),
	}
	id := base.Config.ServiceID
	if id == "" {
		return fromFile, nil
	}

	svc, err := base.ConfigStore.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Cannot load the configuration of the service %q: %w", id, err)
	}
	svc.Merge(fromFile)
	return svc, nil
}

func storageOptions() storage.Options {
	return storage.Options{
		Cache:             base.ListingsCache,
		DeleteConcurrency: base.Config.DeleteConcurrency,
		ConnectTimeout:    viper.GetDuration("swift.connect_timeout"),
		Timeout:           viper.GetDuration("swift.timeout"),
		EndpointType:      viper.GetString("swift.endpoint_type"),
		Domain:            viper.GetString("swift.domain"),
	}
}

func configureConfigStore(ctx context.Context) error {
	base.DatabaseNamespace = viper.GetString("couchdb.prefix")
	secret := viper.GetString("config_store.secret")

	addr := viper.GetString("couchdb.url")
	if addr == "" {
		logrus.Warn("No CouchDB configured, the service configurations are kept in memory")
		base.ConfigStore = svcconfig.NewMemStore(secret)
		return nil
	}
	client, err := svcconfig.NewCouchdbClient(addr,
		viper.GetString("couchdb.user"), viper.GetString("couchdb.password"))
	if err != nil {
		return err
	}
	store, err := svcconfig.NewCouchdbStore(ctx, client, base.DatabaseNamespace, secret)
	if err != nil {
		return err
	}
	base.ConfigStore = store
	return nil
}

func configureCache() error {
	if len(viper.GetStringSlice("redis.addrs")) == 0 {
		configureLRUCache()
		return nil
	}

	opts := &redis.UniversalOptions{
		// Either a single address or a seed list of host:port addresses
		// of cluster/sentinel nodes.
		Addrs: viper.GetStringSlice("redis.addrs"),

		// The sentinel master name.
		// Only failover clients.
		MasterName: viper.GetString("redis.master"),

		// Enables read only queries on slave nodes.
		ReadOnly: viper.GetBool("redis.read_only_slave"),

		MaxRetries:         viper.GetInt("redis.max_retries"),
		Password:           viper.GetString("redis.password"),
		DialTimeout:        viper.GetDuration("redis.dial_timeout"),
		ReadTimeout:        viper.GetDuration("redis.read_timeout"),
		WriteTimeout:       viper.GetDuration("redis.write_timeout"),
		PoolSize:           viper.GetInt("redis.pool_size"),
		PoolTimeout:        viper.GetDuration("redis.pool_timeout"),
		IdleTimeout:        viper.GetDuration("redis.idle_timeout"),
		IdleCheckFrequency: viper.GetDuration("redis.idle_check_frequency"),
		DB:                 viper.GetInt("redis.databases.listings"),
	}
	client := redis.NewUniversalClient(opts)
	if err := client.Ping().Err(); err != nil {
		return err
	}
	base.ListingsCache = cache.NewRedisCache(base.Config.CacheTTL, client)
	return nil
}

func configureLRUCache() {
	size := base.Config.CacheSize
	if size <= 0 {
		size = 256
	}
	ttl := base.Config.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	base.ListingsCache = cache.NewLRUCache(size, ttl)
}
