package storage

import (
	"context"
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
)

const (
	kvTable = "kv"
	kvIndex = "id"
)

type entry struct {
	Key   string
	Value any
}

func kvSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			kvTable: {
				Name: kvTable,
				Indexes: map[string]*memdb.IndexSchema{
					kvIndex: {
						Name:    kvIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
}

// Memory keeps values in an in-memory go-memdb table. Values are stored as is.
type Memory struct {
	db *memdb.MemDB
}

var _ Storage = (*Memory)(nil)

func NewMemory() (*Memory, error) {
	db, err := memdb.NewMemDB(kvSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}
	return &Memory{db: db}, nil
}

func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(kvTable, kvIndex, key)
	if err != nil || raw == nil {
		return nil, false, err
	}
	return raw.(*entry).Value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	txn := m.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(kvTable, &entry{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to insert %q: %w", key, err)
	}
	txn.Commit()
	return nil
}
