package access

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/ryogrid/SamehadaWAL/lib/recovery"
	"github.com/ryogrid/SamehadaWAL/lib/storage/buffer"
	"github.com/ryogrid/SamehadaWAL/lib/storage/disk"
	testingpkg "github.com/ryogrid/SamehadaWAL/lib/testing/testing_assert"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

type testEnv struct {
	dm                  *disk.DiskManagerFaultInjector
	bpm                 *buffer.BufferPoolManager
	log_manager         *recovery.LogManager
	transaction_manager *TransactionManager
}

func newTestEnv() *testEnv {
	dm := disk.NewDiskManagerFaultInjector(disk.NewVirtualDiskManagerImpl("txn.db", "txn.log"))
	bpm := buffer.NewBufferPoolManager()
	log_manager := recovery.NewLogManager(dm, bpm)
	return &testEnv{dm, bpm, log_manager, NewTransactionManager(log_manager)}
}

func (env *testEnv) logLines(t *testing.T) []string {
	buf, exists, err := env.dm.ReadLog()
	testingpkg.Ok(t, err)
	if !exists {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(string(buf), "\n"), "\n")
}

func TestReadYourOwnWrites(t *testing.T) {
	env := newTestEnv()
	env.bpm.Put("accounts", "alice", "1000")

	txn := env.transaction_manager.Begin()
	testingpkg.Ok(t, txn.Update("accounts", "alice", "1000", "1200"))

	val, ok, err := txn.Read("accounts", "alice")
	testingpkg.Ok(t, err)
	testingpkg.Ok(t, testingpkg.ExpectValue("1200", val, ok))

	// others see committed value only
	val, ok = env.bpm.Get("accounts", "alice")
	testingpkg.Ok(t, testingpkg.ExpectValue("1000", val, ok))
	testingpkg.Equals(t, 0, len(env.logLines(t)))

	testingpkg.Ok(t, txn.Commit())
	testingpkg.Equals(t, COMMITTED, txn.GetState())
	val, ok = env.bpm.Get("accounts", "alice")
	testingpkg.Ok(t, testingpkg.ExpectValue("1200", val, ok))

	lines := env.logLines(t)
	testingpkg.Equals(t, 1, len(lines))
	rec := recovery.NewLogRecordFromLine(lines[0])
	testingpkg.Equals(t, recovery.UPDATE, rec.Log_record_type)
	oldVal, _ := rec.GetOldValue()
	testingpkg.Equals(t, "1000", oldVal)
}

func TestIsolationScenario(t *testing.T) {
	env := newTestEnv()
	env.bpm.Put("accounts", "alice", "1000")
	env.bpm.Put("accounts", "bob", "500")

	txn1 := env.transaction_manager.Begin()
	txn2 := env.transaction_manager.Begin()
	testingpkg.Equals(t, 2, env.transaction_manager.GetActiveTxnNum())

	testingpkg.Ok(t, txn1.Update("accounts", "alice", "1000", "1200"))
	testingpkg.Ok(t, txn2.Update("accounts", "bob", "500", "1500"))

	val, ok, _ := txn2.Read("accounts", "alice")
	testingpkg.Ok(t, testingpkg.ExpectValue("1000", val, ok))

	testingpkg.Ok(t, txn1.Commit())
	testingpkg.Equals(t, 1, env.transaction_manager.GetActiveTxnNum())

	// no snapshot isolation. committed write is visible immediately
	val, ok, _ = txn2.Read("accounts", "alice")
	testingpkg.Ok(t, testingpkg.ExpectValue("1200", val, ok))
	_, _, err := txn1.Read("accounts", "alice")
	testingpkg.Equals(t, ErrTxnNotActive, err)

	testingpkg.Ok(t, txn2.Commit())
	testingpkg.Equals(t, 0, env.transaction_manager.GetActiveTxnNum())
	testingpkg.Equals(t, map[string]map[string]string{
		"accounts": {"alice": "1200", "bob": "1500"},
	}, env.bpm.Snapshot())
}

func TestRollbackWritesNothing(t *testing.T) {
	env := newTestEnv()

	txn := env.transaction_manager.Begin()
	testingpkg.Ok(t, txn.Insert("t", "k", "v"))
	lsnBefore := env.log_manager.GetLastLSN()
	testingpkg.Ok(t, env.transaction_manager.Abort(txn))

	testingpkg.Equals(t, ABORTED, txn.GetState())
	testingpkg.Equals(t, 0, len(env.logLines(t)))
	_, ok := env.bpm.Get("t", "k")
	testingpkg.AssertFalse(t, ok, "")
	testingpkg.Equals(t, 0, env.bpm.GetDirtyPageNum())

	// lsn is never reused
	testingpkg.Assert(t, env.log_manager.GetNextLSN() > lsnBefore, "")
}

func TestOperationsAfterTermination(t *testing.T) {
	env := newTestEnv()

	committed := env.transaction_manager.Begin()
	testingpkg.Ok(t, committed.Commit())
	aborted := env.transaction_manager.Begin()
	testingpkg.Ok(t, aborted.Rollback())

	for _, txn := range []*Transaction{committed, aborted} {
		_, _, err := txn.Read("t", "k")
		testingpkg.Equals(t, ErrTxnNotActive, err)
		testingpkg.Equals(t, ErrTxnNotActive, txn.Update("t", "k", "", "v"))
		testingpkg.Equals(t, ErrTxnNotActive, txn.Insert("t", "k", "v"))
		testingpkg.Equals(t, ErrTxnNotActive, txn.Delete("t", "k"))
		testingpkg.Equals(t, ErrTxnNotActive, txn.Commit())
		testingpkg.Equals(t, ErrTxnNotActive, txn.Rollback())
	}
	testingpkg.Equals(t, COMMITTED, committed.GetState())
	testingpkg.Equals(t, ABORTED, aborted.GetState())
}

func TestSameKeyUpdatedTwice(t *testing.T) {
	env := newTestEnv()
	env.bpm.Put("t", "k", "0")

	txn := env.transaction_manager.Begin()
	testingpkg.Ok(t, txn.Update("t", "k", "0", "1"))
	testingpkg.Ok(t, txn.Update("t", "k", "0", "2"))
	testingpkg.Ok(t, txn.Commit())

	lines := env.logLines(t)
	testingpkg.Equals(t, 2, len(lines))
	first := recovery.NewLogRecordFromLine(lines[0])
	second := recovery.NewLogRecordFromLine(lines[1])
	testingpkg.Assert(t, first.Lsn < second.Lsn, "")
	oldVal, _ := second.GetOldValue()
	testingpkg.Equals(t, "1", oldVal)

	val, ok := env.bpm.Get("t", "k")
	testingpkg.Ok(t, testingpkg.ExpectValue("2", val, ok))
}

func TestUpdateOfAbsentKeyUsesExpectedOld(t *testing.T) {
	env := newTestEnv()

	txn := env.transaction_manager.Begin()
	testingpkg.Ok(t, txn.Update("t", "a", "guess", "1"))
	testingpkg.Ok(t, txn.Update("t", "b", "", "2"))
	recs := txn.GetWriteSet()

	oldVal, ok := recs[0].GetOldValue()
	testingpkg.Assert(t, ok, "")
	testingpkg.Equals(t, "guess", oldVal)
	_, ok = recs[1].GetOldValue()
	testingpkg.AssertFalse(t, ok, "")
	testingpkg.Ok(t, txn.Rollback())
}

func TestDeleteInTransaction(t *testing.T) {
	env := newTestEnv()
	env.bpm.Put("t", "k", "v")

	txn := env.transaction_manager.Begin()
	testingpkg.Ok(t, txn.Delete("t", "k"))
	_, ok, err := txn.Read("t", "k")
	testingpkg.Ok(t, err)
	testingpkg.AssertFalse(t, ok, "own delete must be visible")

	// re-insert after delete in the same transaction
	testingpkg.Ok(t, txn.Insert("t", "k2", "x"))
	testingpkg.Ok(t, txn.Commit())

	_, ok = env.bpm.Get("t", "k")
	testingpkg.AssertFalse(t, ok, "")
	lines := env.logLines(t)
	testingpkg.Equals(t, 2, len(lines))
	rec := recovery.NewLogRecordFromLine(lines[0])
	testingpkg.Equals(t, recovery.DELETE, rec.Log_record_type)
	oldVal, _ := rec.GetOldValue()
	testingpkg.Equals(t, "v", oldVal)
}

func TestIllegalCharacters(t *testing.T) {
	env := newTestEnv()
	txn := env.transaction_manager.Begin()

	testingpkg.Equals(t, ErrIllegalCharacter, txn.Insert("t|x", "k", "v"))
	testingpkg.Equals(t, ErrIllegalCharacter, txn.Insert("t", "k\n", "v"))
	testingpkg.Equals(t, ErrIllegalCharacter, txn.Insert("t", "k", "a->b"))
	testingpkg.Equals(t, ErrIllegalCharacter, txn.Update("t", "k", "x\r", "v"))
	testingpkg.Equals(t, ErrIllegalCharacter, txn.Delete("t", "k|"))
	testingpkg.Equals(t, 0, len(txn.GetWriteSet()))

	// values with ">" or "-" alone are fine
	testingpkg.Ok(t, txn.Insert("t", "k", "a-b>c"))
	testingpkg.Ok(t, txn.Commit())
}

func TestAppendFaultAbortsCommit(t *testing.T) {
	env := newTestEnv()

	txn := env.transaction_manager.Begin()
	testingpkg.Ok(t, txn.Insert("t", "k", "v"))
	env.dm.SetLogWriteFault(true)
	testingpkg.Nok(t, txn.Commit())

	testingpkg.Equals(t, ABORTED, txn.GetState())
	_, ok := env.bpm.Get("t", "k")
	testingpkg.AssertFalse(t, ok, "nothing may be applied on failed commit")
	testingpkg.Equals(t, 0, env.transaction_manager.GetActiveTxnNum())
}

func TestFlushFaultAbortsCommit(t *testing.T) {
	env := newTestEnv()

	txn := env.transaction_manager.Begin()
	testingpkg.Ok(t, txn.Insert("t", "k", "v"))
	env.dm.SetLogSyncFault(true)
	testingpkg.Nok(t, txn.Commit())

	testingpkg.Equals(t, ABORTED, txn.GetState())
	testingpkg.Equals(t, 0, env.bpm.GetDirtyPageNum())
}

func TestConcurrentCommits(t *testing.T) {
	env := newTestEnv()

	const txnNum = 20
	wg := new(sync.WaitGroup)
	for ii := 0; ii < txnNum; ii++ {
		wg.Add(1)
		go func(ii int) {
			defer wg.Done()
			txn := env.transaction_manager.Begin()
			key := strconv.Itoa(ii)
			if err := txn.Insert("t", key, key); err != nil {
				t.Error(err)
			}
			if err := txn.Insert("u", key, key); err != nil {
				t.Error(err)
			}
			if err := txn.Commit(); err != nil {
				t.Error(err)
			}
		}(ii)
	}
	wg.Wait()

	lines := env.logLines(t)
	testingpkg.Equals(t, txnNum*2, len(lines))
	// records of one transaction are contiguous in the log
	seenTxn := make(map[types.TxnID]bool)
	for ii := 0; ii < len(lines); ii += 2 {
		first := recovery.NewLogRecordFromLine(lines[ii])
		second := recovery.NewLogRecordFromLine(lines[ii+1])
		testingpkg.Equals(t, first.Txn_id, second.Txn_id)
		testingpkg.AssertFalse(t, seenTxn[first.Txn_id], "")
		seenTxn[first.Txn_id] = true
	}
	testingpkg.Equals(t, txnNum, len(env.bpm.Snapshot()["t"]))
}

func TestTxnIDsAreUnique(t *testing.T) {
	env := newTestEnv()
	first := env.transaction_manager.Begin()
	second := env.transaction_manager.Begin()
	testingpkg.Assert(t, second.GetTransactionId() > first.GetTransactionId(), "")
	testingpkg.Equals(t, first, env.transaction_manager.GetTransaction(first.GetTransactionId()))
}
