package store

import (
	"path/filepath"
	"strings"

	ds "github.com/ipfs/go-datastore"
	ktds "github.com/ipfs/go-datastore/keytransform"
	dssync "github.com/ipfs/go-datastore/sync"
	badger3 "github.com/ipfs/go-ds-badger3"
)

// NewDefaultKVStore creates a badger-backed datastore under rootDir/dbPath/dbName.
func NewDefaultKVStore(rootDir, dbPath, dbName string) (ds.Batching, error) {
	path := filepath.Join(rootify(rootDir, dbPath), dbName)
	opts := badger3.DefaultOptions
	return badger3.NewDatastore(path, &opts)
}

// NewDefaultInMemoryKVStore creates a badger datastore that never touches disk.
func NewDefaultInMemoryKVStore() (ds.Batching, error) {
	opts := badger3.DefaultOptions
	opts.Options = opts.Options.WithInMemory(true)
	return badger3.NewDatastore("", &opts)
}

// NewTestKVStore returns a thread-safe map datastore for tests.
func NewTestKVStore() ds.Batching {
	return dssync.MutexWrap(ds.NewMapDatastore())
}

// NewPrefixKV namespaces every key of kvStore under prefix.
func NewPrefixKV(kvStore ds.Batching, prefix string) ds.Batching {
	return ktds.Wrap(kvStore, ktds.PrefixTransform{Prefix: ds.NewKey(prefix)})
}

// GenerateKey joins fields into a datastore key path.
func GenerateKey(fields []string) string {
	return "/" + strings.Join(fields, "/")
}

// rootify returns dbPath itself if it is absolute, otherwise dbPath joined to rootDir.
func rootify(rootDir, dbPath string) string {
	if filepath.IsAbs(dbPath) {
		return dbPath
	}
	return filepath.Join(rootDir, dbPath)
}
