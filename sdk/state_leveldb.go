package sdk

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelState persists into goleveldb. Batches map 1:1 onto leveldb.Batch
// so a single Apply is atomic on disk.
type LevelState struct {
	db   *leveldb.DB
	sync bool
}

// OpenLevelState opens (or creates) a database directory.
func OpenLevelState(path string, syncWrites bool) (*LevelState, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelState{db: db, sync: syncWrites}, nil
}

// NewLevelStateWithStorage is mostly for tests: storage.NewMemStorage() gives a real db without disk.
func NewLevelStateWithStorage(stor storage.Storage) (*LevelState, error) {
	db, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelState{db: db}, nil
}

func (l *LevelState) Get(key string) (*string, error) {
	raw, err := l.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapLevelErr(err)
	}
	val := string(raw)
	return &val, nil
}

func (l *LevelState) Set(key, value string) error {
	return mapLevelErr(l.db.Put([]byte(key), []byte(value), l.writeOpts()))
}

func (l *LevelState) Delete(key string) error {
	return mapLevelErr(l.db.Delete([]byte(key), l.writeOpts()))
}

func (l *LevelState) Apply(b *Batch) error {
	lb := new(leveldb.Batch)
	b.Each(func(key, value string, del bool) {
		if del {
			lb.Delete([]byte(key))
			return
		}
		lb.Put([]byte(key), []byte(value))
	})
	return mapLevelErr(l.db.Write(lb, l.writeOpts()))
}

func (l *LevelState) Keys(prefix string) ([]string, error) {
	it := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()
	keys := make([]string, 0)
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	return keys, mapLevelErr(it.Error())
}

func (l *LevelState) Close() error {
	return mapLevelErr(l.db.Close())
}

func (l *LevelState) writeOpts() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: l.sync}
}

func mapLevelErr(err error) error {
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrStateClosed
	}
	return err
}
