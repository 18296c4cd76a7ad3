package svcconfig

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	_ "github.com/go-kivik/couchdb/v3" // for couchdb
	"github.com/go-kivik/kivik/v3"
	"github.com/sirupsen/logrus"
)

type couchdbDocs struct {
	client *kivik.Client
}

// NewCouchdbClient returns a kivik client for the CouchDB server at addr.
func NewCouchdbClient(addr, user, pass string) (*kivik.Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if user != "" {
		if pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return kivik.New("couch", u.String())
}

// NewCouchdbStore returns a store that keeps the configurations in CouchDB.
// The databases are created if they don't exist. The secrets are sealed with
// the passphrase, if not empty.
func NewCouchdbStore(ctx context.Context, client *kivik.Client, prefix, passphrase string) (Store, error) {
	s := newDocStore(&couchdbDocs{client: client}, prefix, passphrase)
	for _, dbName := range []string{s.configDB, s.pathDB} {
		ok, err := client.DBExists(ctx, dbName)
		if err != nil {
			return nil, fmt.Errorf("Cannot check the database %q: %w", dbName, err)
		}
		if ok {
			continue
		}
		logrus.WithField("database", dbName).Info("Creating database")
		if err = client.CreateDB(ctx, dbName); err != nil {
			return nil, fmt.Errorf("Cannot create the database %q: %w", dbName, err)
		}
	}
	return s, nil
}

func (c *couchdbDocs) get(ctx context.Context, db, id string, doc interface{}) (bool, error) {
	row := c.client.DB(ctx, db).Get(ctx, id)
	err := row.ScanDoc(doc)
	if kivik.StatusCode(err) == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *couchdbDocs) put(ctx context.Context, db, id string, doc interface{}) error {
	_, err := c.client.DB(ctx, db).Put(ctx, id, doc)
	return err
}

func (c *couchdbDocs) remove(ctx context.Context, db, id string) error {
	var doc struct {
		Rev string `json:"_rev"`
	}
	found, err := c.get(ctx, db, id, &doc)
	if err != nil || !found {
		return err
	}
	_, err = c.client.DB(ctx, db).Delete(ctx, id, doc.Rev)
	return err
}
