package concurrency

import (
	"sync"
	"time"

	"github.com/golang-collections/collections/queue"
	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/storage/buffer"
	"github.com/ryogrid/SamehadaWAL/lib/storage/disk"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

/**
 * CheckpointManager drains dirty pages of the buffer pool into the page storage.
 * transactions are not blocked. pages updated while a checkpoint runs stay dirty
 * and are handled by the next round.
 */
type CheckpointManager struct {
	buffer_pool_manager *buffer.BufferPoolManager
	page_storage        disk.PageStorage
	// serializes checkpoints
	checkpoint_mutex *common.SH_Mutex
	// checkpointing thread works when this flag is true
	isCheckpointActive bool
	flagMutex          *sync.Mutex
	stopCh             chan struct{}
	wg                 *sync.WaitGroup
}

func NewCheckpointManager(
	buffer_pool_manager *buffer.BufferPoolManager,
	page_storage disk.PageStorage) *CheckpointManager {
	return &CheckpointManager{
		buffer_pool_manager: buffer_pool_manager,
		page_storage:        page_storage,
		checkpoint_mutex:    common.NewSH_Mutex(),
		isCheckpointActive:  false,
		flagMutex:           new(sync.Mutex),
		wg:                  new(sync.WaitGroup),
	}
}

// StartCheckpointTh starts periodic checkpointing on a goroutine.
// does nothing when interval is not positive or the thread already runs
func (checkpoint_manager *CheckpointManager) StartCheckpointTh(interval time.Duration) {
	if interval <= 0 {
		return
	}
	checkpoint_manager.flagMutex.Lock()
	defer checkpoint_manager.flagMutex.Unlock()
	if checkpoint_manager.isCheckpointActive {
		return
	}
	checkpoint_manager.isCheckpointActive = true
	stopCh := make(chan struct{})
	checkpoint_manager.stopCh = stopCh

	checkpoint_manager.wg.Add(1)
	go func() {
		defer checkpoint_manager.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				common.ShPrintf(common.CHECKPOINT_INFO, "CheckpointTh: start checkpointing.\n")
				cleaned := checkpoint_manager.Checkpoint()
				common.ShPrintf(common.CHECKPOINT_INFO, "CheckpointTh: finish checkpointing. %d pages persisted.\n", cleaned)
			}
		}
	}()
}

// StopCheckpointTh stops the checkpointing thread and waits for it.
// a checkpoint running at the time completes before return
func (checkpoint_manager *CheckpointManager) StopCheckpointTh() {
	checkpoint_manager.flagMutex.Lock()
	if !checkpoint_manager.isCheckpointActive {
		checkpoint_manager.flagMutex.Unlock()
		return
	}
	checkpoint_manager.isCheckpointActive = false
	close(checkpoint_manager.stopCh)
	checkpoint_manager.flagMutex.Unlock()

	checkpoint_manager.wg.Wait()
}

func (checkpoint_manager *CheckpointManager) IsCheckpointActive() bool {
	checkpoint_manager.flagMutex.Lock()
	defer checkpoint_manager.flagMutex.Unlock()
	return checkpoint_manager.isCheckpointActive
}

/*
* persist all pages which are dirty at call time
* a page without entry is skipped. a page whose persist failed stays dirty
* @return: number of pages made clean
 */
func (checkpoint_manager *CheckpointManager) Checkpoint() int {
	checkpoint_manager.checkpoint_mutex.Lock()
	defer checkpoint_manager.checkpoint_mutex.Unlock()

	dirtyPages := queue.New()
	for _, pageID := range checkpoint_manager.buffer_pool_manager.GetDirtyPages() {
		dirtyPages.Enqueue(pageID)
	}
	if dirtyPages.Len() == 0 {
		return 0
	}

	cleaned := 0
	failed := 0
	for dirtyPages.Len() > 0 {
		pageID := dirtyPages.Dequeue().(types.PageID)
		entry, ok := checkpoint_manager.buffer_pool_manager.GetEntry(pageID)
		if !ok {
			continue
		}

		var err error
		if entry.IsDeleted {
			err = checkpoint_manager.page_storage.RemovePage(pageID.GetTable(), pageID.GetKey())
		} else {
			err = checkpoint_manager.page_storage.PersistPage(pageID.GetTable(), pageID.GetKey(), entry.Value)
		}
		if err != nil {
			failed++
			common.ShPrintf(common.WARN, "Checkpoint: persist of %s failed. kept dirty. err=%v\n", pageID, err)
			continue
		}
		if checkpoint_manager.buffer_pool_manager.MarkCleanIfUnchanged(pageID, entry.Version) {
			cleaned++
		}
	}

	if failed > 0 {
		common.ShPrintf(common.WARN, "Checkpoint: %d pages failed to persist.\n", failed)
	}
	common.ShPrintf(common.CHECKPOINT_INFO, "Checkpoint: %d pages persisted.\n", cleaned)
	return cleaned
}
