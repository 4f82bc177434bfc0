package access

import (
	"github.com/ryogrid/SamehadaWAL/lib/recovery"
	"github.com/ryogrid/SamehadaWAL/lib/types"
	"github.com/sasha-s/go-deadlock"
)

/**
 * TransactionManager keeps track of all the transactions running in the system.
 */
type TransactionManager struct {
	log_manager *recovery.LogManager
	txn_map     map[types.TxnID]*Transaction
	mutex       *deadlock.Mutex
}

func NewTransactionManager(log_manager *recovery.LogManager) *TransactionManager {
	return &TransactionManager{log_manager, make(map[types.TxnID]*Transaction), new(deadlock.Mutex)}
}

func (transaction_manager *TransactionManager) Begin() *Transaction {
	txn := NewTransaction(transaction_manager.log_manager)
	txn.onFinish = transaction_manager.removeTxn

	transaction_manager.mutex.Lock()
	transaction_manager.txn_map[txn.GetTransactionId()] = txn
	transaction_manager.mutex.Unlock()
	return txn
}

func (transaction_manager *TransactionManager) Commit(txn *Transaction) error {
	return txn.Commit()
}

func (transaction_manager *TransactionManager) Abort(txn *Transaction) error {
	return txn.Rollback()
}

func (transaction_manager *TransactionManager) removeTxn(txn *Transaction) {
	transaction_manager.mutex.Lock()
	delete(transaction_manager.txn_map, txn.GetTransactionId())
	transaction_manager.mutex.Unlock()
}

func (transaction_manager *TransactionManager) GetTransaction(txn_id types.TxnID) *Transaction {
	transaction_manager.mutex.Lock()
	defer transaction_manager.mutex.Unlock()
	return transaction_manager.txn_map[txn_id]
}

func (transaction_manager *TransactionManager) GetActiveTxnNum() int {
	transaction_manager.mutex.Lock()
	defer transaction_manager.mutex.Unlock()
	return len(transaction_manager.txn_map)
}
