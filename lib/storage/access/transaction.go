package access

import (
	"strings"
	"sync/atomic"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/errors"
	"github.com/ryogrid/SamehadaWAL/lib/recovery"
	"github.com/ryogrid/SamehadaWAL/lib/types"
	"github.com/sasha-s/go-deadlock"
)

const ErrTxnNotActive = errors.Error("transaction is not active")
const ErrIllegalCharacter = errors.Error("name or value contains a character reserved by the log format")

/**
 * Transaction states:
 *
 *     _________________________
 *    |                         v
 * ACTIVE -> COMMITTED       ABORTED
 *
 * COMMITTED and ABORTED are final
 **/

type TransactionState int32

const (
	ACTIVE TransactionState = iota
	COMMITTED
	ABORTED
)

func (state TransactionState) String() string {
	switch state {
	case ACTIVE:
		return "ACTIVE"
	case COMMITTED:
		return "COMMITTED"
	default:
		return "ABORTED"
	}
}

// process wide. never reset
var txnIDCounter atomic.Uint64

func allocateTxnID() types.TxnID {
	return types.TxnID(txnIDCounter.Add(1))
}

// overlayEntry is an uncommitted write visible to its own transaction only
type overlayEntry struct {
	value     string
	isDeleted bool
}

/**
 * Transaction buffers its writes and makes them durable and visible at commit.
 * reads see own writes first and then the committed state (not snapshot isolation).
 * a Transaction is used from one goroutine at a time
 */
type Transaction struct {
	/** The current transaction state. */
	state TransactionState

	txn_id types.TxnID

	// records in operation order. written to log at commit
	write_set []*recovery.LogRecord
	// local view of own writes
	overlay map[types.PageID]overlayEntry

	log_manager *recovery.LogManager
	mutex       *deadlock.Mutex
	// called once when the transaction reaches a final state
	onFinish func(txn *Transaction)
}

func NewTransaction(log_manager *recovery.LogManager) *Transaction {
	txn := &Transaction{
		state:       ACTIVE,
		txn_id:      allocateTxnID(),
		write_set:   make([]*recovery.LogRecord, 0),
		overlay:     make(map[types.PageID]overlayEntry),
		log_manager: log_manager,
		mutex:       new(deadlock.Mutex),
	}
	common.ShPrintf(common.DEBUG_INFO, "[TXN-%d] started\n", txn.txn_id)
	return txn
}

/** @return the id of this transaction */
func (txn *Transaction) GetTransactionId() types.TxnID { return txn.txn_id }

func (txn *Transaction) GetState() TransactionState {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()
	return txn.state
}

// GetWriteSet returns a copy of buffered records
func (txn *Transaction) GetWriteSet() []*recovery.LogRecord {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()
	ret := make([]*recovery.LogRecord, len(txn.write_set))
	copy(ret, txn.write_set)
	return ret
}

func isLegalString(str string) bool {
	return !strings.ContainsAny(str, common.FieldSeparator+"\n\r") && !strings.Contains(str, common.ValueSeparator)
}

func validate(strs ...string) error {
	for _, str := range strs {
		if !isLegalString(str) {
			return ErrIllegalCharacter
		}
	}
	return nil
}

// caller must hold mutex
func (txn *Transaction) readLocked(table string, key string) (string, bool) {
	if entry, ok := txn.overlay[types.NewPageID(table, key)]; ok {
		if entry.isDeleted {
			return "", false
		}
		return entry.value, true
	}
	return txn.log_manager.GetBufferPoolManager().Get(table, key)
}

// Read returns own uncommitted write if exists, otherwise the committed value
func (txn *Transaction) Read(table string, key string) (string, bool, error) {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()

	if txn.state != ACTIVE {
		return "", false, ErrTxnNotActive
	}
	val, ok := txn.readLocked(table, key)
	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO_DETAIL, "[TXN-%d] READ %s.%s = %s (%v)\n", txn.txn_id, table, key, val, ok)
	}
	return val, ok, nil
}

/*
* buffer an update of the key
* old value of the record is the value this transaction sees now.
* when the key is absent, expectedOld is used (empty means no old value)
 */
func (txn *Transaction) Update(table string, key string, expectedOld string, newValue string) error {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()

	if txn.state != ACTIVE {
		return ErrTxnNotActive
	}
	if err := validate(table, key, expectedOld, newValue); err != nil {
		return err
	}

	var oldValue *string
	if cur, ok := txn.readLocked(table, key); ok {
		oldValue = &cur
	} else if expectedOld != "" {
		oldValue = &expectedOld
	}

	lsn := txn.log_manager.GetNextLSN()
	txn.write_set = append(txn.write_set, recovery.NewLogRecordUpdate(lsn, txn.txn_id, table, key, oldValue, newValue))
	txn.overlay[types.NewPageID(table, key)] = overlayEntry{value: newValue}
	common.ShPrintf(common.DEBUG_INFO, "[TXN-%d] buffered UPDATE %s.%s = %s\n", txn.txn_id, table, key, newValue)
	return nil
}

// Insert buffers an insert of the key. the record has no old value
func (txn *Transaction) Insert(table string, key string, value string) error {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()

	if txn.state != ACTIVE {
		return ErrTxnNotActive
	}
	if err := validate(table, key, value); err != nil {
		return err
	}

	lsn := txn.log_manager.GetNextLSN()
	txn.write_set = append(txn.write_set, recovery.NewLogRecordInsert(lsn, txn.txn_id, table, key, value))
	txn.overlay[types.NewPageID(table, key)] = overlayEntry{value: value}
	common.ShPrintf(common.DEBUG_INFO, "[TXN-%d] buffered INSERT %s.%s = %s\n", txn.txn_id, table, key, value)
	return nil
}

// Delete buffers a delete of the key. the key reads as absent from this transaction afterwards
func (txn *Transaction) Delete(table string, key string) error {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()

	if txn.state != ACTIVE {
		return ErrTxnNotActive
	}
	if err := validate(table, key); err != nil {
		return err
	}

	var oldValue *string
	if cur, ok := txn.readLocked(table, key); ok {
		oldValue = &cur
	}

	lsn := txn.log_manager.GetNextLSN()
	txn.write_set = append(txn.write_set, recovery.NewLogRecordDelete(lsn, txn.txn_id, table, key, oldValue))
	txn.overlay[types.NewPageID(table, key)] = overlayEntry{isDeleted: true}
	common.ShPrintf(common.DEBUG_INFO, "[TXN-%d] buffered DELETE %s.%s\n", txn.txn_id, table, key)
	return nil
}

/*
* make all buffered writes durable and then visible to others
* append all records -> flush -> apply all to buffer pool
* when append or flush fails, nothing is applied and the transaction is aborted.
* records appended before the failure may remain in the log file
 */
func (txn *Transaction) Commit() error {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()

	if txn.state != ACTIVE {
		return ErrTxnNotActive
	}

	common.ShPrintf(common.DEBUG_INFO, "[TXN-%d] COMMIT writing %d records to log\n", txn.txn_id, len(txn.write_set))
	if len(txn.write_set) > 0 {
		for _, log_record := range txn.write_set {
			if err := txn.log_manager.AppendLogRecord(log_record); err != nil {
				txn.finishLocked(ABORTED)
				return err
			}
		}
		if err := txn.log_manager.Flush(); err != nil {
			txn.finishLocked(ABORTED)
			return err
		}
		for _, log_record := range txn.write_set {
			txn.log_manager.ApplyToBufferPool(log_record)
		}
	}

	txn.finishLocked(COMMITTED)
	common.ShPrintf(common.DEBUG_INFO, "[TXN-%d] COMMIT done\n", txn.txn_id)
	return nil
}

// Rollback discards buffered writes. nothing is written to log
func (txn *Transaction) Rollback() error {
	txn.mutex.Lock()
	defer txn.mutex.Unlock()

	if txn.state != ACTIVE {
		return ErrTxnNotActive
	}
	common.ShPrintf(common.DEBUG_INFO, "[TXN-%d] ROLLBACK discarding %d records\n", txn.txn_id, len(txn.write_set))
	txn.finishLocked(ABORTED)
	return nil
}

func (txn *Transaction) finishLocked(state TransactionState) {
	txn.state = state
	txn.write_set = txn.write_set[:0]
	txn.overlay = make(map[types.PageID]overlayEntry)
	if txn.onFinish != nil {
		txn.onFinish(txn)
		txn.onFinish = nil
	}
}
