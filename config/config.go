package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cozy/cozy-cloudfiles/base"
	"github.com/cozy/cozy-cloudfiles/cache"
	"github.com/cozy/cozy-cloudfiles/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables that can override the
// configuration, like CLOUDFILES_SWIFT_USERNAME for swift.username.
const EnvPrefix = "cloudfiles"

// SetDefaults sets the default values of the configuration.
func SetDefaults() {
	viper.SetDefault("host", "localhost")
	viper.SetDefault("port", 8087)
	viper.SetDefault("log.level", "info")

	viper.SetDefault("storage.chunk_size", base.DefaultChunkSize)
	viper.SetDefault("storage.delete_concurrency", 8)

	viper.SetDefault("swift.endpoint_type", "public")
	viper.SetDefault("swift.connect_timeout", 10*time.Second)
	viper.SetDefault("swift.timeout", 60*time.Second)

	viper.SetDefault("couchdb.url", "")
	viper.SetDefault("couchdb.prefix", "cloudfiles")

	viper.SetDefault("cache.ttl", cache.DefaultTTL)
	viper.SetDefault("cache.size", 256)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// ReadFile reads the configuration file. If file is empty, a file with the
// given name is searched in the current directory, ~/.cozy and /etc/cozy, and
// it's fine if there is none.
func ReadFile(file, name string) error {
	if file != "" {
		file, err := utils.AbsPath(file)
		if err != nil {
			return err
		}
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("Cannot read the config file %s: %w", file, err)
		}
		return nil
	}

	viper.SetConfigName(name)
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".cozy"))
	}
	viper.AddConfigPath("/etc/cozy")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

func configureLogger() error {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	return nil
}

func configureParameters() error {
	chunkSize := viper.GetInt64("storage.chunk_size")
	if chunkSize <= 0 {
		return fmt.Errorf("Invalid storage.chunk_size: %d", chunkSize)
	}
	base.Config = base.ConfigParameters{
		ChunkSize:         chunkSize,
		Container:         viper.GetString("swift.container"),
		ServiceID:         viper.GetString("service_id"),
		DeleteConcurrency: viper.GetInt("storage.delete_concurrency"),
		CacheTTL:          viper.GetDuration("cache.ttl"),
		CacheSize:         viper.GetInt("cache.size"),
	}
	return nil
}
