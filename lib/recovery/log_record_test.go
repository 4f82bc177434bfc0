package recovery

import (
	"testing"

	testingpkg "github.com/ryogrid/SamehadaWAL/lib/testing/testing_assert"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

func TestLogLineFormat(t *testing.T) {
	old := "1000"
	rec := NewLogRecordUpdate(types.LSN(3), types.TxnID(1), "accounts", "alice", &old, "1200")
	rec.Timestamp = 1700000000000
	testingpkg.Equals(t, "3|1|UPDATE|accounts|alice|1000->1200|1700000000000\n", rec.GetLogLine())

	rec = NewLogRecordInsert(types.LSN(4), types.TxnID(2), "accounts", "carol", "10")
	rec.Timestamp = 5
	testingpkg.Equals(t, "4|2|INSERT|accounts|carol|->10|5\n", rec.GetLogLine())

	rec = NewLogRecordDelete(types.LSN(5), types.TxnID(2), "accounts", "carol", nil)
	rec.Timestamp = 6
	testingpkg.Equals(t, "5|2|DELETE|accounts|carol|->|6\n", rec.GetLogLine())
}

func TestLogLineRoundTrip(t *testing.T) {
	old := "500"
	recs := []*LogRecord{
		NewLogRecordInsert(types.LSN(1), types.TxnID(9), "t", "k", "v"),
		NewLogRecordUpdate(types.LSN(2), types.TxnID(9), "t", "k", &old, "600"),
		NewLogRecordUpdate(types.LSN(3), types.TxnID(9), "t", "k2", nil, "1"),
		NewLogRecordDelete(types.LSN(4), types.TxnID(9), "t", "k", &old),
	}
	for _, rec := range recs {
		parsed := NewLogRecordFromLine(rec.String())
		testingpkg.Assert(t, parsed != nil, "failed to parse %s", rec)
		testingpkg.Equals(t, rec, parsed)
	}
}

// an empty field is the only encoding of an absent value, so a committed
// empty old value comes back as absent. new values keep the empty string
func TestEmptyValueOnLogLine(t *testing.T) {
	empty := ""
	rec := NewLogRecordUpdate(types.LSN(1), types.TxnID(1), "t", "k", &empty, "")
	rec.Timestamp = 0
	testingpkg.Equals(t, "1|1|UPDATE|t|k|->|0\n", rec.GetLogLine())

	parsed := NewLogRecordFromLine(rec.String())
	testingpkg.Assert(t, parsed != nil, "")
	_, ok := parsed.GetOldValue()
	testingpkg.AssertFalse(t, ok, "empty old value must read back as absent")
	val, ok := parsed.GetNewValue()
	testingpkg.Ok(t, testingpkg.ExpectValue("", val, ok))

	parsed = NewLogRecordFromLine(NewLogRecordDelete(types.LSN(2), types.TxnID(1), "t", "k", &empty).String())
	testingpkg.Assert(t, parsed != nil, "")
	testingpkg.Equals(t, DELETE, parsed.Log_record_type)
	_, ok = parsed.GetOldValue()
	testingpkg.AssertFalse(t, ok, "empty old value must read back as absent")
	_, ok = parsed.GetNewValue()
	testingpkg.AssertFalse(t, ok, "")

	parsed = NewLogRecordFromLine(NewLogRecordInsert(types.LSN(3), types.TxnID(1), "t", "k", "").String())
	testingpkg.Assert(t, parsed != nil, "")
	val, ok = parsed.GetNewValue()
	testingpkg.Ok(t, testingpkg.ExpectValue("", val, ok))
}

func TestLogLineAcceptsPrefixedForm(t *testing.T) {
	rec := NewLogRecordFromLine("LSN:7|TXN:2|UPDATE|accounts|bob|500->1500|1700000000000")
	testingpkg.Assert(t, rec != nil, "")
	testingpkg.Equals(t, types.LSN(7), rec.Lsn)
	testingpkg.Equals(t, types.TxnID(2), rec.Txn_id)
	val, ok := rec.GetNewValue()
	testingpkg.Ok(t, testingpkg.ExpectValue("1500", val, ok))
	val, ok = rec.GetOldValue()
	testingpkg.Ok(t, testingpkg.ExpectValue("500", val, ok))
}

func TestMalformedLogLines(t *testing.T) {
	lines := []string{
		"",
		"garbage",
		"1|1|UPDATE|t|k|a->b",
		"1|1|UPDATE|t|k|a->b|0|extra",
		"x|1|UPDATE|t|k|a->b|0",
		"1|y|UPDATE|t|k|a->b|0",
		"1|1|UPSERT|t|k|a->b|0",
		"1|1|UPDATE|t|k|ab|0",
	}
	for _, line := range lines {
		testingpkg.Assert(t, NewLogRecordFromLine(line) == nil, "line must be rejected: %q", line)
	}
}
