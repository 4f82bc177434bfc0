package samehada

import (
	"strings"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/samehada/samehada_util"
	"github.com/ryogrid/SamehadaWAL/lib/storage/access"
)

// SamehadaDB is the embedding API on top of SamehadaInstance
type SamehadaDB struct {
	shi_ *SamehadaInstance
}

func NewSamehadaDB(config *common.Config) (*SamehadaDB, error) {
	shi, err := NewSamehadaInstance(config)
	if err != nil {
		return nil, err
	}
	return &SamehadaDB{shi}, nil
}

func (sdb *SamehadaDB) GetSamehadaInstance() *SamehadaInstance {
	return sdb.shi_
}

// Begin starts a transaction. caller must call Commit or Rollback of it
func (sdb *SamehadaDB) Begin() *access.Transaction {
	return sdb.shi_.GetTransactionManager().Begin()
}

// RunTxn runs fn in a new transaction. the transaction is committed when fn
// returns nil and rolled back otherwise. the error of fn or commit is returned
func (sdb *SamehadaDB) RunTxn(fn func(txn *access.Transaction) error) error {
	txn := sdb.Begin()
	if err := fn(txn); err != nil {
		if txn.GetState() == access.ACTIVE {
			txn.Rollback()
		}
		return err
	}
	return txn.Commit()
}

// Get returns the committed value
func (sdb *SamehadaDB) Get(table string, key string) (string, bool) {
	return sdb.shi_.GetBufferPoolManager().Get(table, key)
}

// Checkpoint persists dirty pages now. returns the number of persisted pages
func (sdb *SamehadaDB) Checkpoint() int {
	return sdb.shi_.GetCheckpointManager().Checkpoint()
}

func (sdb *SamehadaDB) PrintContents() {
	printRows("buffer pool", sdb.shi_.GetBufferPoolManager().Snapshot())
	printRows("page storage", sdb.shi_.GetPageStorage().Contents())
	common.ShPrintf(common.INFO, "dirty pages: %d\n", sdb.shi_.GetBufferPoolManager().GetDirtyPageNum())
}

// one log entry per row
func printRows(source string, contents map[string]map[string]string) {
	common.ShPrintf(common.INFO, "%s contents: %d tables\n", source, len(contents))
	for _, line := range strings.Split(samehada_util.FormatContents(contents), "\n") {
		if line == "" {
			continue
		}
		common.ShPrintf(common.INFO, "%s\n", strings.TrimSpace(line))
	}
}

func (sdb *SamehadaDB) Shutdown() {
	sdb.shi_.Shutdown(false)
}

// ShutdownForTesting shuts down and removes files
func (sdb *SamehadaDB) ShutdownForTesting() {
	sdb.shi_.Shutdown(true)
}
