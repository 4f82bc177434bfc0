package log_recovery

import (
	"strings"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/recovery"
	"github.com/ryogrid/SamehadaWAL/lib/storage/buffer"
	"github.com/ryogrid/SamehadaWAL/lib/storage/disk"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

/**
 * Read log file from disk and redo it into the buffer pool.
 * there is no undo. records are written at commit only
 */
type LogRecovery struct {
	disk_manager        disk.DiskManager
	buffer_pool_manager *buffer.BufferPoolManager
	log_manager         *recovery.LogManager
}

func NewLogRecovery(disk_manager disk.DiskManager, buffer_pool_manager *buffer.BufferPoolManager, log_manager *recovery.LogManager) *LogRecovery {
	return &LogRecovery{disk_manager, buffer_pool_manager, log_manager}
}

/*
 * deserialize all log records of the log file in file order
 * malformed lines are skipped
 */
func (log_recovery *LogRecovery) readLogRecords() ([]*recovery.LogRecord, int, error) {
	buf, exists, err := log_recovery.disk_manager.ReadLog()
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, nil
	}

	ret := make([]*recovery.LogRecord, 0)
	skipped := 0
	for _, line := range strings.Split(string(buf), "\n") {
		if line == "" {
			continue
		}
		log_record := recovery.NewLogRecordFromLine(line)
		if log_record == nil {
			skipped++
			common.ShPrintf(common.DEBUG_INFO, "LogRecovery: skipped malformed line: %s\n", line)
			continue
		}
		ret = append(ret, log_record)
	}
	return ret, skipped, nil
}

/*
*redo phase on recovery
*redo every record of the log file in file order (= commit order)
*at last, the lsn allocator is moved after the greatest lsn found
*@return: greatest lsn on log file, whether something was redone
 */
func (log_recovery *LogRecovery) Redo() (types.LSN, bool, error) {
	log_records, skipped, err := log_recovery.readLogRecords()
	if err != nil {
		common.ShPrintf(common.ERROR, "LogRecovery::Redo can't read log file. err=%v\n", err)
		return common.InvalidLSN, false, err
	}

	greatestLSN := types.LSN(common.InvalidLSN)
	isRedoOccured := false
	for _, log_record := range log_records {
		if log_record.Lsn > greatestLSN {
			greatestLSN = log_record.Lsn
		}
		switch log_record.Log_record_type {
		case recovery.INSERT, recovery.UPDATE:
			newValue, _ := log_record.GetNewValue()
			log_recovery.buffer_pool_manager.Put(log_record.Table, log_record.Key, newValue)
		case recovery.DELETE:
			log_recovery.buffer_pool_manager.Delete(log_record.Table, log_record.Key)
		}
		isRedoOccured = true
		common.ShPrintf(common.RECOVERY_INFO, "redo: %s\n", log_record)
	}

	if log_recovery.log_manager != nil && greatestLSN != common.InvalidLSN {
		log_recovery.log_manager.SetNextLSN(greatestLSN + 1)
	}
	common.ShPrintf(common.INFO, "recovery: %d records redone, %d lines skipped, greatest lsn=%d\n",
		len(log_records), skipped, greatestLSN)
	return greatestLSN, isRedoOccured, nil
}
