// this code is from https://github.com/pzhzqt/goostub
// there is license and copyright notice in licenses/goostub dir

package common

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

type ReaderWriterLatch interface {
	WLock()
	WUnlock()
	RLock()
	RUnlock()
}

type readerWriterLatch struct {
	mutex *deadlock.RWMutex
}

func init() {
	// lock order checking is costly. it works on debug build only
	deadlock.Opts.Disable = !EnableDebug
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
	deadlock.Opts.OnPotentialDeadlock = func() {
		ShPrintf(FATAL, "potential deadlock detected. dumping goroutines.\n")
		RuntimeStack()
	}
}

func NewRWLatch() ReaderWriterLatch {
	latch := readerWriterLatch{}
	latch.mutex = new(deadlock.RWMutex)

	return &latch
}

func (l *readerWriterLatch) WLock() {
	l.mutex.Lock()
}

func (l *readerWriterLatch) WUnlock() {
	l.mutex.Unlock()
}

func (l *readerWriterLatch) RLock() {
	l.mutex.RLock()
}

func (l *readerWriterLatch) RUnlock() {
	l.mutex.RUnlock()
}
