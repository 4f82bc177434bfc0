package recovery

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/storage/buffer"
	"github.com/ryogrid/SamehadaWAL/lib/storage/disk"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

/**
 * LogManager hands out log sequence numbers and appends log records to the log file.
 * records become durable on Flush only. committed records are applied to the
 * buffer pool after that.
 */
type LogManager struct {
	/** The atomic counter which records the last allocated log sequence number. */
	last_lsn atomic.Uint64
	/** Greatest lsn written to the log file. not durable until Flush */
	appended_lsn types.LSN
	/** The log records before and including the persistent lsn have been synced to disk. */
	persistent_lsn types.LSN
	// on memory mirror of appended records
	log_records         []*LogRecord
	latch               common.ReaderWriterLatch
	wlog_mutex          *common.SH_Mutex
	disk_manager        disk.DiskManager
	buffer_pool_manager *buffer.BufferPoolManager
}

func NewLogManager(disk_manager disk.DiskManager, buffer_pool_manager *buffer.BufferPoolManager) *LogManager {
	ret := new(LogManager)
	ret.last_lsn.Store(common.InvalidLSN)
	ret.appended_lsn = common.InvalidLSN
	ret.persistent_lsn = common.InvalidLSN
	ret.log_records = make([]*LogRecord, 0)
	ret.latch = common.NewRWLatch()
	ret.wlog_mutex = common.NewSH_Mutex()
	ret.disk_manager = disk_manager
	ret.buffer_pool_manager = buffer_pool_manager
	return ret
}

// GetNextLSN allocates a new lsn. safe for concurrent callers
func (log_manager *LogManager) GetNextLSN() types.LSN {
	return types.LSN(log_manager.last_lsn.Add(1))
}

// GetLastLSN returns the last allocated lsn without allocation
func (log_manager *LogManager) GetLastLSN() types.LSN {
	return types.LSN(log_manager.last_lsn.Load())
}

// SetNextLSN makes later allocations return lsnVal or greater.
// allocation never goes backward
func (log_manager *LogManager) SetNextLSN(lsnVal types.LSN) {
	if lsnVal == common.InvalidLSN {
		return
	}
	for {
		cur := log_manager.last_lsn.Load()
		if cur >= uint64(lsnVal)-1 {
			return
		}
		if log_manager.last_lsn.CompareAndSwap(cur, uint64(lsnVal)-1) {
			return
		}
	}
}

func (log_manager *LogManager) GetPersistentLSN() types.LSN {
	log_manager.latch.RLock()
	defer log_manager.latch.RUnlock()
	return log_manager.persistent_lsn
}

/*
* append a log record to the log file
* records of concurrent callers are written in call order
 */
func (log_manager *LogManager) AppendLogRecord(log_record *LogRecord) error {
	log_manager.wlog_mutex.Lock()
	defer log_manager.wlog_mutex.Unlock()

	if err := log_manager.disk_manager.WriteLog([]byte(log_record.GetLogLine())); err != nil {
		common.ShPrintf(common.ERROR, "LogManager::AppendLogRecord failed. lsn=%d err=%v\n", log_record.Lsn, err)
		return errors.Wrapf(err, "append of log record (lsn=%d) failed", log_record.Lsn)
	}

	log_manager.latch.WLock()
	log_manager.log_records = append(log_manager.log_records, log_record)
	if log_record.Lsn > log_manager.appended_lsn {
		log_manager.appended_lsn = log_record.Lsn
	}
	log_manager.latch.WUnlock()

	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO, "LogManager::AppendLogRecord %s\n", log_record)
	}
	return nil
}

/*
* make all appended records durable
* returns after the simulated fsync latency
 */
func (log_manager *LogManager) Flush() error {
	log_manager.latch.RLock()
	lsn := log_manager.appended_lsn
	log_manager.latch.RUnlock()

	if err := log_manager.disk_manager.SyncLog(); err != nil {
		common.ShPrintf(common.ERROR, "LogManager::Flush failed. err=%v\n", err)
		return errors.Wrap(err, "flush of log failed")
	}
	time.Sleep(common.LogFlushLatency)

	log_manager.latch.WLock()
	if lsn > log_manager.persistent_lsn {
		log_manager.persistent_lsn = lsn
	}
	log_manager.latch.WUnlock()
	return nil
}

/*
* apply a committed record to the buffer pool
* must be called after the record is flushed
 */
func (log_manager *LogManager) ApplyToBufferPool(log_record *LogRecord) {
	switch log_record.Log_record_type {
	case INSERT, UPDATE:
		newValue, _ := log_record.GetNewValue()
		log_manager.buffer_pool_manager.Put(log_record.Table, log_record.Key, newValue)
	case DELETE:
		log_manager.buffer_pool_manager.Delete(log_record.Table, log_record.Key)
	default:
		common.ShPrintf(common.WARN, "LogManager::ApplyToBufferPool unknown record type. lsn=%d\n", log_record.Lsn)
	}
}

// GetLogRecords returns a copy of records appended through this instance
func (log_manager *LogManager) GetLogRecords() []*LogRecord {
	log_manager.latch.RLock()
	defer log_manager.latch.RUnlock()

	ret := make([]*LogRecord, len(log_manager.log_records))
	copy(ret, log_manager.log_records)
	return ret
}

func (log_manager *LogManager) GetBufferPoolManager() *buffer.BufferPoolManager {
	return log_manager.buffer_pool_manager
}
