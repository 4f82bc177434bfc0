package disk

import (
	"strings"
	"time"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DiskStorage is the file backed PageStorage. all rows are held on memory
// and the whole data file is rewritten on every persist
type DiskStorage struct {
	disk_manager DiskManager
	data         map[string]map[string]string
	// guards data
	latch common.ReaderWriterLatch
	// serializes file rewrites
	rewrite_mutex *common.SH_Mutex
	logger        logrus.FieldLogger
}

func NewDiskStorage(disk_manager DiskManager) *DiskStorage {
	ret := &DiskStorage{
		disk_manager:  disk_manager,
		data:          make(map[string]map[string]string),
		latch:         common.NewRWLatch(),
		rewrite_mutex: common.NewSH_Mutex(),
		logger:        common.ComponentLogger("disk_storage"),
	}
	ret.load()
	return ret
}

// load fills the map from the data file. a read fault is reported
// and the storage starts empty
func (ds *DiskStorage) load() {
	buf, exists, err := ds.disk_manager.ReadData()
	if err != nil {
		ds.logger.WithError(err).Warn("failed to load data file. starting with empty storage")
		return
	}
	if !exists {
		return
	}

	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, common.FieldSeparator)
		if len(fields) != common.DataLineFieldNum {
			common.ShPrintf(common.DEBUG_INFO, "DiskStorage::load skipped malformed line: %s\n", line)
			continue
		}
		ds.putLocked(fields[0], fields[1], fields[2])
	}
}

func (ds *DiskStorage) putLocked(table string, key string, value string) {
	tbl, ok := ds.data[table]
	if !ok {
		tbl = make(map[string]string)
		ds.data[table] = tbl
	}
	tbl[key] = value
}

// PersistPage updates the row and rewrites the data file.
// when the rewrite fails the on memory row is already updated and the error is returned
func (ds *DiskStorage) PersistPage(table string, key string, value string) error {
	ds.rewrite_mutex.Lock()
	defer ds.rewrite_mutex.Unlock()

	ds.latch.WLock()
	ds.putLocked(table, key, value)
	buf := ds.serializeLocked()
	ds.latch.WUnlock()

	return ds.writeOut(buf)
}

func (ds *DiskStorage) RemovePage(table string, key string) error {
	ds.rewrite_mutex.Lock()
	defer ds.rewrite_mutex.Unlock()

	ds.latch.WLock()
	if tbl, ok := ds.data[table]; ok {
		delete(tbl, key)
		if len(tbl) == 0 {
			delete(ds.data, table)
		}
	}
	buf := ds.serializeLocked()
	ds.latch.WUnlock()

	return ds.writeOut(buf)
}

func (ds *DiskStorage) writeOut(buf []byte) error {
	err := ds.disk_manager.WriteData(buf)
	if err != nil {
		ds.logger.WithError(err).Error("failed to rewrite data file")
		return err
	}
	time.Sleep(common.PageWriteLatency)
	return nil
}

// rows are written sorted by table and key
func (ds *DiskStorage) serializeLocked() []byte {
	tables := maps.Keys(ds.data)
	slices.Sort(tables)

	var sb strings.Builder
	for _, table := range tables {
		tbl := ds.data[table]
		keys := maps.Keys(tbl)
		slices.Sort(keys)
		for _, key := range keys {
			sb.WriteString(table)
			sb.WriteString(common.FieldSeparator)
			sb.WriteString(key)
			sb.WriteString(common.FieldSeparator)
			sb.WriteString(tbl[key])
			sb.WriteString("\n")
		}
	}
	return []byte(sb.String())
}

func (ds *DiskStorage) ReadPage(table string, key string) (string, bool) {
	ds.latch.RLock()
	defer ds.latch.RUnlock()

	if tbl, ok := ds.data[table]; ok {
		val, ok := tbl[key]
		return val, ok
	}
	return "", false
}

func (ds *DiskStorage) Contents() map[string]map[string]string {
	ds.latch.RLock()
	defer ds.latch.RUnlock()

	ret := make(map[string]map[string]string, len(ds.data))
	for table, tbl := range ds.data {
		ret[table] = maps.Clone(tbl)
	}
	return ret
}

// Close does nothing. the disk manager is owned by the caller
func (ds *DiskStorage) Close() error {
	return nil
}
