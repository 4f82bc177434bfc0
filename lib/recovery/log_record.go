package recovery

import (
	"strconv"
	"strings"
	"time"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

type LogRecordType int32

/** The type of the log record. */
const (
	INVALID LogRecordType = iota
	INSERT
	UPDATE
	DELETE
)

func (t LogRecordType) String() string {
	switch t {
	case INSERT:
		return "INSERT"
	case UPDATE:
		return "UPDATE"
	case DELETE:
		return "DELETE"
	default:
		return "INVALID"
	}
}

func NewLogRecordTypeFromString(s string) LogRecordType {
	switch s {
	case "INSERT":
		return INSERT
	case "UPDATE":
		return UPDATE
	case "DELETE":
		return DELETE
	default:
		return INVALID
	}
}

/**
 * One write of a transaction. serialized as one line of the log file
 *-----------------------------------------------------------
 * | LSN | TXN | OPERATION | TABLE | KEY | OLD->NEW | TIMESTAMP |
 *-----------------------------------------------------------
 * absent old or new value is written as empty string.
 * the reader also accepts "LSN:" and "TXN:" prefixed numbers
 */
type LogRecord struct {
	Lsn             types.LSN
	Txn_id          types.TxnID
	Log_record_type LogRecordType
	Table           string
	Key             string
	// nil means absent
	Old_value *string
	New_value *string
	// unix time in milliseconds
	Timestamp uint64
}

func newLogRecord(lsn types.LSN, txn_id types.TxnID, log_record_type LogRecordType, table string, key string, old_value *string, new_value *string) *LogRecord {
	return &LogRecord{
		Lsn:             lsn,
		Txn_id:          txn_id,
		Log_record_type: log_record_type,
		Table:           table,
		Key:             key,
		Old_value:       old_value,
		New_value:       new_value,
		Timestamp:       uint64(time.Now().UnixMilli()),
	}
}

// constructor for INSERT type
func NewLogRecordInsert(lsn types.LSN, txn_id types.TxnID, table string, key string, new_value string) *LogRecord {
	return newLogRecord(lsn, txn_id, INSERT, table, key, nil, &new_value)
}

// constructor for UPDATE type. old_value is nil when there was no committed value
func NewLogRecordUpdate(lsn types.LSN, txn_id types.TxnID, table string, key string, old_value *string, new_value string) *LogRecord {
	return newLogRecord(lsn, txn_id, UPDATE, table, key, copyOptional(old_value), &new_value)
}

// constructor for DELETE type
func NewLogRecordDelete(lsn types.LSN, txn_id types.TxnID, table string, key string, old_value *string) *LogRecord {
	return newLogRecord(lsn, txn_id, DELETE, table, key, copyOptional(old_value), nil)
}

func copyOptional(val *string) *string {
	if val == nil {
		return nil
	}
	ret := *val
	return &ret
}

func optionalToString(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}

func (log_record *LogRecord) GetOldValue() (string, bool) {
	return optionalToString(log_record.Old_value), log_record.Old_value != nil
}

func (log_record *LogRecord) GetNewValue() (string, bool) {
	return optionalToString(log_record.New_value), log_record.New_value != nil
}

// GetLogLine returns serialized record with trailing newline
func (log_record *LogRecord) GetLogLine() string {
	var sb strings.Builder
	sb.WriteString(log_record.Lsn.String())
	sb.WriteString(common.FieldSeparator)
	sb.WriteString(log_record.Txn_id.String())
	sb.WriteString(common.FieldSeparator)
	sb.WriteString(log_record.Log_record_type.String())
	sb.WriteString(common.FieldSeparator)
	sb.WriteString(log_record.Table)
	sb.WriteString(common.FieldSeparator)
	sb.WriteString(log_record.Key)
	sb.WriteString(common.FieldSeparator)
	sb.WriteString(optionalToString(log_record.Old_value))
	sb.WriteString(common.ValueSeparator)
	sb.WriteString(optionalToString(log_record.New_value))
	sb.WriteString(common.FieldSeparator)
	sb.WriteString(strconv.FormatUint(log_record.Timestamp, 10))
	sb.WriteString("\n")
	return sb.String()
}

func (log_record *LogRecord) String() string {
	return strings.TrimSuffix(log_record.GetLogLine(), "\n")
}

/*
 * deserialize a log record from one line of log file
 * @return: nil when the line is malformed
 * (wrong field count, bad number, unknown operation or no value separator)
 */
func NewLogRecordFromLine(line string) *LogRecord {
	line = strings.TrimSuffix(line, "\r")
	fields := strings.Split(line, common.FieldSeparator)
	if len(fields) != common.LogLineFieldNum {
		return nil
	}

	lsn, err := types.NewLSNFromString(strings.TrimPrefix(fields[0], "LSN:"))
	if err != nil {
		return nil
	}
	txn_id, err := types.NewTxnIDFromString(strings.TrimPrefix(fields[1], "TXN:"))
	if err != nil {
		return nil
	}
	log_record_type := NewLogRecordTypeFromString(fields[2])
	if log_record_type == INVALID {
		return nil
	}
	sepIdx := strings.Index(fields[5], common.ValueSeparator)
	if sepIdx < 0 {
		return nil
	}
	oldStr := fields[5][:sepIdx]
	newStr := fields[5][sepIdx+len(common.ValueSeparator):]
	// timestamp is informational. unparsable one is kept as zero
	timestamp, _ := strconv.ParseUint(fields[6], 10, 64)

	ret := &LogRecord{
		Lsn:             lsn,
		Txn_id:          txn_id,
		Log_record_type: log_record_type,
		Table:           fields[3],
		Key:             fields[4],
		Timestamp:       timestamp,
	}
	// the empty string stands for both "absent" and "empty value". the operation decides
	switch log_record_type {
	case INSERT:
		ret.New_value = &newStr
	case UPDATE:
		if oldStr != "" {
			ret.Old_value = &oldStr
		}
		ret.New_value = &newStr
	case DELETE:
		if oldStr != "" {
			ret.Old_value = &oldStr
		}
	}
	return ret
}
