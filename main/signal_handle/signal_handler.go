package signal_handle

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/samehada"
)

var isStopped atomic.Bool

func IsStopped() bool {
	return isStopped.Load()
}

// SignalHandlerTh shuts down db on SIGINT or SIGTERM and notifies exitNotifyCh.
// when doneCh is closed first, the handler returns without doing anything
func SignalHandlerTh(db *samehada.SamehadaDB, exitNotifyCh chan<- bool, doneCh <-chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-doneCh:
		return
	}

	// ---- after receive signal ---

	// stop starting new transactions
	isStopped.Store(true)
	common.ShPrintf(common.INFO, "signal received. shutting down...\n")

	// final checkpoint and close files
	db.Shutdown()

	// notify that shutdown operation finished to main thread
	exitNotifyCh <- true
}
