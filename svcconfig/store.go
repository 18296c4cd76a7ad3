package svcconfig

import (
	"context"
	"net/http"

	"github.com/cozy/cozy-cloudfiles/errshttp"
)

// Suffixes of the names of the databases.
const (
	CloudFilesDBSuffix = "cloudfiles-config"
	PublicPathDBSuffix = "file-public-path"
)

var (
	errNoServiceID        = errshttp.NewError(http.StatusBadRequest, "No service id given for the configuration.")
	errInvalidStorageType = errshttp.NewError(http.StatusBadRequest, "Invalid storage type: should be %q", StorageType)
)

type cloudFilesDoc struct {
	ID          string `json:"_id,omitempty"`
	Rev         string `json:"_rev,omitempty"`
	ServiceID   string `json:"service_id"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	TenantName  string `json:"tenant_name,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
	URL         string `json:"url,omitempty"`
	Region      string `json:"region,omitempty"`
	StorageType string `json:"storage_type,omitempty"`
	Container   string `json:"container,omitempty"`
}

type publicPathDoc struct {
	ID         string   `json:"_id,omitempty"`
	Rev        string   `json:"_rev,omitempty"`
	ServiceID  string   `json:"service_id"`
	PublicPath []string `json:"public_path"`
}

// docs is a key/value store of JSON documents, split in databases.
type docs interface {
	// get fills doc with the document, and returns false if there is no such
	// document.
	get(ctx context.Context, db, id string, doc interface{}) (bool, error)
	put(ctx context.Context, db, id string, doc interface{}) error
	// remove deletes a document. A missing document is not an error.
	remove(ctx context.Context, db, id string) error
}

type docStore struct {
	docs     docs
	sealer   *sealer
	configDB string
	pathDB   string
}

func newDocStore(d docs, prefix, passphrase string) *docStore {
	return &docStore{
		docs:     d,
		sealer:   newSealer(passphrase),
		configDB: dbName(prefix, CloudFilesDBSuffix),
		pathDB:   dbName(prefix, PublicPathDBSuffix),
	}
}

func dbName(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "-" + suffix
}

func (s *docStore) Get(ctx context.Context, serviceID string) (*Config, error) {
	if serviceID == "" {
		return nil, errNoServiceID
	}
	cfg := &Config{ServiceID: serviceID}

	var cf cloudFilesDoc
	found, err := s.docs.get(ctx, s.configDB, serviceID, &cf)
	if err != nil {
		return nil, err
	}
	if found {
		if cf.Password, err = s.sealer.open(serviceID, cf.Password); err != nil {
			return nil, err
		}
		if cf.APIKey, err = s.sealer.open(serviceID, cf.APIKey); err != nil {
			return nil, err
		}
		cfg.Merge(&Config{
			Username:    cf.Username,
			Password:    cf.Password,
			TenantName:  cf.TenantName,
			APIKey:      cf.APIKey,
			URL:         cf.URL,
			Region:      cf.Region,
			StorageType: cf.StorageType,
			Container:   cf.Container,
		})
	}

	var pp publicPathDoc
	found, err = s.docs.get(ctx, s.pathDB, serviceID, &pp)
	if err != nil {
		return nil, err
	}
	if found {
		cfg.PublicPath = pp.PublicPath
	}
	return cfg, nil
}

func (s *docStore) Set(ctx context.Context, serviceID string, input *Config) error {
	if serviceID == "" {
		return errNoServiceID
	}
	if input.StorageType != "" && input.StorageType != StorageType {
		return errInvalidStorageType
	}

	var cf cloudFilesDoc
	if _, err := s.docs.get(ctx, s.configDB, serviceID, &cf); err != nil {
		return err
	}
	password, err := s.sealer.seal(serviceID, input.Password)
	if err != nil {
		return err
	}
	apiKey, err := s.sealer.seal(serviceID, input.APIKey)
	if err != nil {
		return err
	}
	set := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	cf.ID = serviceID
	cf.ServiceID = serviceID
	set(&cf.Username, input.Username)
	set(&cf.Password, password)
	set(&cf.TenantName, input.TenantName)
	set(&cf.APIKey, apiKey)
	set(&cf.URL, input.URL)
	set(&cf.Region, input.Region)
	set(&cf.StorageType, input.StorageType)
	set(&cf.Container, input.Container)
	if err := s.docs.put(ctx, s.configDB, serviceID, &cf); err != nil {
		return err
	}

	var pp publicPathDoc
	if _, err := s.docs.get(ctx, s.pathDB, serviceID, &pp); err != nil {
		return err
	}
	pp.ID = serviceID
	pp.ServiceID = serviceID
	if input.PublicPath != nil {
		pp.PublicPath = input.PublicPath
	}
	if pp.PublicPath == nil {
		pp.PublicPath = []string{}
	}
	return s.docs.put(ctx, s.pathDB, serviceID, &pp)
}

func (s *docStore) Remove(ctx context.Context, serviceID string) error {
	if serviceID == "" {
		return errNoServiceID
	}
	if err := s.docs.remove(ctx, s.configDB, serviceID); err != nil {
		return err
	}
	return s.docs.remove(ctx, s.pathDB, serviceID)
}
