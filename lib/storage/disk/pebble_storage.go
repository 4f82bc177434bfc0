package disk

import (
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/sirupsen/logrus"
)

const pebbleRowPrefix = "row/"

// PebbleStorage is a PageStorage on top of a pebble database.
// every persist and remove is a synced write
type PebbleStorage struct {
	db     *pebble.DB
	logger logrus.FieldLogger
}

// NewPebbleStorage opens (or creates) the database at dir.
// when onMemory is true the database lives on a memory file system
func NewPebbleStorage(dir string, onMemory bool) (*PebbleStorage, error) {
	opts := &pebble.Options{
		DisableWAL: false,
	}
	if onMemory {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open pebble storage at %s", dir)
	}
	return &PebbleStorage{db: db, logger: common.ComponentLogger("pebble_storage")}, nil
}

func pebbleKeyFor(table string, key string) []byte {
	return []byte(pebbleRowPrefix + table + common.FieldSeparator + key)
}

func parsePebbleKey(b []byte) (string, string, bool) {
	s := strings.TrimPrefix(string(b), pebbleRowPrefix)
	idx := strings.Index(s, common.FieldSeparator)
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+len(common.FieldSeparator):], true
}

func (ps *PebbleStorage) PersistPage(table string, key string, value string) error {
	if err := ps.db.Set(pebbleKeyFor(table, key), []byte(value), pebble.Sync); err != nil {
		ps.logger.WithError(err).Error("failed to persist row")
		return errors.Wrap(err, "pebble set failed")
	}
	time.Sleep(common.PageWriteLatency)
	return nil
}

func (ps *PebbleStorage) RemovePage(table string, key string) error {
	if err := ps.db.Delete(pebbleKeyFor(table, key), pebble.Sync); err != nil {
		ps.logger.WithError(err).Error("failed to remove row")
		return errors.Wrap(err, "pebble delete failed")
	}
	time.Sleep(common.PageWriteLatency)
	return nil
}

func (ps *PebbleStorage) ReadPage(table string, key string) (string, bool) {
	val, closer, err := ps.db.Get(pebbleKeyFor(table, key))
	if err != nil {
		if err != pebble.ErrNotFound {
			ps.logger.WithError(err).Warn("failed to read row")
		}
		return "", false
	}
	defer closer.Close()

	return string(val), true
}

func (ps *PebbleStorage) Contents() map[string]map[string]string {
	ret := make(map[string]map[string]string)
	iter, err := ps.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(pebbleRowPrefix),
		UpperBound: []byte("row0"),
	})
	if err != nil {
		ps.logger.WithError(err).Warn("failed to scan rows")
		return ret
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		table, key, ok := parsePebbleKey(iter.Key())
		if !ok {
			continue
		}
		tbl, ok := ret[table]
		if !ok {
			tbl = make(map[string]string)
			ret[table] = tbl
		}
		// Value is valid until the iterator moves
		tbl[key] = string(iter.Value())
	}
	if err = iter.Error(); err != nil {
		ps.logger.WithError(err).Warn("error while scanning rows")
	}
	return ret
}

func (ps *PebbleStorage) Close() error {
	return ps.db.Close()
}
