package svcconfig

import (
	"context"
	"encoding/json"
	"sync"
)

type memDocs struct {
	mu  sync.RWMutex
	dbs map[string]map[string][]byte
}

// NewMemStore returns a store that keeps the configurations in memory. It is
// used by the tests and when no CouchDB is configured.
func NewMemStore(passphrase string) Store {
	return newDocStore(&memDocs{dbs: make(map[string]map[string][]byte)}, "", passphrase)
}

func (m *memDocs) get(ctx context.Context, db, id string, doc interface{}) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.dbs[db][id]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, doc)
}

func (m *memDocs) put(ctx context.Context, db, id string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dbs[db] == nil {
		m.dbs[db] = make(map[string][]byte)
	}
	m.dbs[db][id] = data
	return nil
}

func (m *memDocs) remove(ctx context.Context, db, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.dbs[db], id)
	return nil
}
