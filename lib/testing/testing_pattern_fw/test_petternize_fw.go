package testing_pattern_fw

import (
	"testing"

	"github.com/ryogrid/SamehadaWAL/lib/storage/access"
	"github.com/ryogrid/SamehadaWAL/lib/storage/buffer"
	"github.com/ryogrid/SamehadaWAL/lib/testing/testing_assert"
)

type OpKind int32

const (
	OpRead OpKind = iota
	OpInsert
	OpUpdate
	OpDelete
	OpCommit
	OpRollback
)

// Step is one operation of a transaction in a scenario.
// Txn is the scenario local transaction number. a transaction is begun on its first step
type Step struct {
	Txn         int
	Op          OpKind
	Table       string
	Key         string
	Value       string
	ExpectedOld string
	// for OpRead. empty Value with ExpectFound false means absent
	ExpectFound bool
	ExpectErr   error
}

// Assertion is checked against committed state after all steps
type Assertion struct {
	Table  string
	Key    string
	Exp    string
	Absent bool
}

type TxnScenarioTestCase struct {
	Description string
	Steps       []Step
	Asserts     []Assertion
}

func ExecuteTxnScenarioTestCase(t *testing.T, txn_mgr *access.TransactionManager, bpm *buffer.BufferPoolManager, testCase TxnScenarioTestCase) {
	t.Helper()
	txns := make(map[int]*access.Transaction)

	for idx, step := range testCase.Steps {
		txn, ok := txns[step.Txn]
		if !ok {
			txn = txn_mgr.Begin()
			txns[step.Txn] = txn
		}

		var err error
		switch step.Op {
		case OpRead:
			var val string
			var found bool
			val, found, err = txn.Read(step.Table, step.Key)
			if err == nil {
				testing_assert.Assert(t, found == step.ExpectFound && (!found || val == step.Value),
					"%s: step %d read %s.%s got (%q, %v) expected (%q, %v)",
					testCase.Description, idx, step.Table, step.Key, val, found, step.Value, step.ExpectFound)
			}
		case OpInsert:
			err = txn.Insert(step.Table, step.Key, step.Value)
		case OpUpdate:
			err = txn.Update(step.Table, step.Key, step.ExpectedOld, step.Value)
		case OpDelete:
			err = txn.Delete(step.Table, step.Key)
		case OpCommit:
			err = txn.Commit()
		case OpRollback:
			err = txn.Rollback()
		}
		testing_assert.Assert(t, err == step.ExpectErr, "%s: step %d error %v expected %v", testCase.Description, idx, err, step.ExpectErr)
	}

	for _, assert := range testCase.Asserts {
		val, ok := bpm.Get(assert.Table, assert.Key)
		if assert.Absent {
			testing_assert.AssertFalse(t, ok, "%s: %s.%s should be absent but was %q", testCase.Description, assert.Table, assert.Key, val)
			continue
		}
		testing_assert.Ok(t, testing_assert.ExpectValue(assert.Exp, val, ok))
	}
}
