package samehada

import (
	"os"

	"github.com/pkg/errors"
	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/concurrency"
	"github.com/ryogrid/SamehadaWAL/lib/recovery"
	"github.com/ryogrid/SamehadaWAL/lib/recovery/log_recovery"
	"github.com/ryogrid/SamehadaWAL/lib/samehada/samehada_util"
	"github.com/ryogrid/SamehadaWAL/lib/storage/access"
	"github.com/ryogrid/SamehadaWAL/lib/storage/buffer"
	"github.com/ryogrid/SamehadaWAL/lib/storage/disk"
	"github.com/sasha-s/go-deadlock"
)

type SamehadaInstance struct {
	config              common.Config
	disk_manager        disk.DiskManager
	log_manager         *recovery.LogManager
	bpm                 *buffer.BufferPoolManager
	page_storage        disk.PageStorage
	transaction_manager *access.TransactionManager
	checkpoint_manger   *concurrency.CheckpointManager
	isShutdown          bool
	mutex               *deadlock.Mutex
}

func newDiskManager(config *common.Config) disk.DiskManager {
	if config.UseVirtualStorage {
		return disk.NewVirtualDiskManagerImpl(config.DataFilePath, config.LogFilePath)
	}
	return disk.NewDiskManagerImpl(config.DataFilePath, config.LogFilePath)
}

func newPageStorage(config *common.Config, disk_manager disk.DiskManager) (disk.PageStorage, error) {
	switch config.StorageBackend {
	case common.StorageBackendFile:
		return disk.NewDiskStorage(disk_manager), nil
	case common.StorageBackendPebble:
		return disk.NewPebbleStorage(config.PebbleDir, config.UseVirtualStorage)
	default:
		return nil, errors.Errorf("unknown storage backend: %d", config.StorageBackend)
	}
}

// NewSamehadaInstance wires all components, replays the log file into the
// buffer pool and starts periodic checkpointing when it is configured.
// config nil means common.DefaultConfig()
func NewSamehadaInstance(config *common.Config) (*SamehadaInstance, error) {
	if config == nil {
		config = common.DefaultConfig()
	}

	if !config.UseVirtualStorage && samehada_util.FileExists(config.LogFilePath) {
		common.ShPrintf(common.INFO, "existing log file found: %s\n", config.LogFilePath)
	}

	disk_manager := newDiskManager(config)
	page_storage, err := newPageStorage(config, disk_manager)
	if err != nil {
		disk_manager.ShutDown()
		return nil, err
	}
	bpm := buffer.NewBufferPoolManager()
	log_manager := recovery.NewLogManager(disk_manager, bpm)
	transaction_manager := access.NewTransactionManager(log_manager)
	checkpoint_manager := concurrency.NewCheckpointManager(bpm, page_storage)

	ret := &SamehadaInstance{
		config:              *config,
		disk_manager:        disk_manager,
		log_manager:         log_manager,
		bpm:                 bpm,
		page_storage:        page_storage,
		transaction_manager: transaction_manager,
		checkpoint_manger:   checkpoint_manager,
		mutex:               new(deadlock.Mutex),
	}

	// recovery must finish before any transaction starts
	common.ShPrintf(common.INFO, "recovering from log file...\n")
	log_recovery := log_recovery.NewLogRecovery(disk_manager, bpm, log_manager)
	if _, _, err = log_recovery.Redo(); err != nil {
		page_storage.Close()
		disk_manager.ShutDown()
		return nil, errors.Wrap(err, "recovery failed")
	}

	checkpoint_manager.StartCheckpointTh(config.CheckpointInterval)
	return ret, nil
}

func (si *SamehadaInstance) GetConfig() common.Config {
	return si.config
}

func (si *SamehadaInstance) GetDiskManager() disk.DiskManager {
	return si.disk_manager
}

func (si *SamehadaInstance) GetLogManager() *recovery.LogManager {
	return si.log_manager
}

func (si *SamehadaInstance) GetBufferPoolManager() *buffer.BufferPoolManager {
	return si.bpm
}

func (si *SamehadaInstance) GetPageStorage() disk.PageStorage {
	return si.page_storage
}

func (si *SamehadaInstance) GetTransactionManager() *access.TransactionManager {
	return si.transaction_manager
}

func (si *SamehadaInstance) GetCheckpointManager() *concurrency.CheckpointManager {
	return si.checkpoint_manger
}

// CloseFilesForTesting closes files without final checkpoint.
// state after this is same as a crash for recovery
func (si *SamehadaInstance) CloseFilesForTesting() {
	si.mutex.Lock()
	defer si.mutex.Unlock()
	if si.isShutdown {
		return
	}
	si.isShutdown = true

	si.checkpoint_manger.StopCheckpointTh()
	si.page_storage.Close()
	si.disk_manager.ShutDown()
}

// Shutdown stops checkpointing thread, persists all dirty pages and closes files.
// IsRemoveFiles is for testing. second and later calls do nothing
func (si *SamehadaInstance) Shutdown(IsRemoveFiles bool) {
	si.mutex.Lock()
	defer si.mutex.Unlock()
	if si.isShutdown {
		return
	}
	si.isShutdown = true

	if activeNum := si.transaction_manager.GetActiveTxnNum(); activeNum > 0 {
		common.ShPrintf(common.WARN, "shutdown with %d active transactions. their writes are discarded\n", activeNum)
	}

	si.checkpoint_manger.StopCheckpointTh()
	cleaned := si.checkpoint_manger.Checkpoint()
	common.ShPrintf(common.INFO, "final checkpoint persisted %d pages\n", cleaned)
	if remain := si.bpm.GetDirtyPageNum(); remain > 0 {
		common.ShPrintf(common.WARN, "%d dirty pages could not be persisted at shutdown. they are recovered from log file\n", remain)
	}

	if err := si.page_storage.Close(); err != nil {
		common.ShPrintf(common.WARN, "closing page storage failed. err=%v\n", err)
	}
	si.disk_manager.ShutDown()

	if IsRemoveFiles {
		si.disk_manager.RemoveDBFile()
		si.disk_manager.RemoveLogFile()
		if si.config.StorageBackend == common.StorageBackendPebble && !si.config.UseVirtualStorage {
			os.RemoveAll(si.config.PebbleDir)
		}
	}
}
