package log_recovery

import (
	"testing"

	"github.com/ryogrid/SamehadaWAL/lib/recovery"
	"github.com/ryogrid/SamehadaWAL/lib/storage/buffer"
	"github.com/ryogrid/SamehadaWAL/lib/storage/disk"
	testingpkg "github.com/ryogrid/SamehadaWAL/lib/testing/testing_assert"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

func TestRedoWithoutLogFile(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("a.db", "a.log")
	bpm := buffer.NewBufferPoolManager()
	log_manager := recovery.NewLogManager(dm, bpm)

	lsn, isRedoOccured, err := NewLogRecovery(dm, bpm, log_manager).Redo()
	testingpkg.Ok(t, err)
	testingpkg.AssertFalse(t, isRedoOccured, "")
	testingpkg.Equals(t, types.LSN(0), lsn)
	testingpkg.Equals(t, 0, bpm.GetDirtyPageNum())
}

func TestRedoReplaysInFileOrder(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("b.db", "b.log")
	// txn 2 allocated lsn 2 before txn 1 allocated lsn 3, but txn 1 committed first
	content := "1|1|INSERT|accounts|alice|->1000|0\n" +
		"3|1|UPDATE|accounts|alice|1000->1100|0\n" +
		"this line is broken\n" +
		"2|2|UPDATE|accounts|alice|1000->1200|0\n" +
		"LSN:4|TXN:3|INSERT|accounts|bob|->500|0\n" +
		"5|3|UPDATE|accounts|bob|500|0\n" +
		"6|4|DELETE|accounts|carol|->|0\n"
	testingpkg.Ok(t, dm.WriteLog([]byte(content)))

	bpm := buffer.NewBufferPoolManager()
	log_manager := recovery.NewLogManager(dm, bpm)
	lsn, isRedoOccured, err := NewLogRecovery(dm, bpm, log_manager).Redo()
	testingpkg.Ok(t, err)
	testingpkg.Assert(t, isRedoOccured, "")
	testingpkg.Equals(t, types.LSN(6), lsn)

	val, ok := bpm.Get("accounts", "alice")
	testingpkg.Ok(t, testingpkg.ExpectValue("1200", val, ok))
	val, ok = bpm.Get("accounts", "bob")
	testingpkg.Ok(t, testingpkg.ExpectValue("500", val, ok))
	_, ok = bpm.Get("accounts", "carol")
	testingpkg.AssertFalse(t, ok, "")
	testingpkg.Assert(t, bpm.IsDirty(types.NewPageID("accounts", "carol")), "tombstone must be dirty")

	// allocation continues after recovered lsns
	testingpkg.Equals(t, types.LSN(7), log_manager.GetNextLSN())
}

func TestRedoIsIdempotent(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("c.db", "c.log")
	testingpkg.Ok(t, dm.WriteLog([]byte("1|1|INSERT|t|k|->v1|0\n2|2|UPDATE|t|k|v1->v2|0\n")))

	bpm := buffer.NewBufferPoolManager()
	log_recovery := NewLogRecovery(dm, bpm, recovery.NewLogManager(dm, bpm))
	_, _, err := log_recovery.Redo()
	testingpkg.Ok(t, err)
	_, _, err = log_recovery.Redo()
	testingpkg.Ok(t, err)

	testingpkg.Equals(t, map[string]map[string]string{"t": {"k": "v2"}}, bpm.Snapshot())
}
