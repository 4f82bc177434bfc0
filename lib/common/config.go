// this code is from https://github.com/pzhzqt/goostub
// there is license and copyright notice in licenses/goostub dir

package common

import (
	"sync"
	"time"
)

const EnableDebug bool = false //true

// use on memory virtual storage or not (tests only, see disk.NewDiskManagerTest)
var EnableOnMemStorage = true

// when this is true, virtual storage use is suppressed
// for test case which can't work with virtual storage
var TempSuppressOnMemStorage = false
var TempSuppressOnMemStorageMutex sync.Mutex

type StorageBackend int32

const (
	StorageBackendFile StorageBackend = iota
	StorageBackendPebble
)

const (
	// invalid transaction id
	InvalidTxnID = 0
	// invalid log sequence number
	InvalidLSN = 0
	// simulated cost of fsync on the log file
	LogFlushLatency = 5 * time.Millisecond
	// simulated cost of a persistent store rewrite
	PageWriteLatency = 10 * time.Millisecond
	// number of shards of the committed state cache
	BufferPoolShardNum = 16
	// separators of the log and data file formats
	FieldSeparator = "|"
	ValueSeparator = "->"
	// field count of a log line and a data file line
	LogLineFieldNum  = 7
	DataLineFieldNum = 3
	// default file names
	DefaultLogFileName  = "wal.log"
	DefaultDataFileName = "data.txt"
	DefaultPebbleDir    = "data.pebble"
	// the interval the original simulation used for its scheduled checkpoint
	DefaultCheckpointInterval = 10 * time.Second
	ActiveLogKindSetting      = INFO | WARN | ERROR | FATAL //| CHECKPOINT_INFO | RECOVERY_INFO | DEBUG_INFO
)

// Config holds the construction time parameters of a SamehadaInstance.
type Config struct {
	LogFilePath  string
	DataFilePath string
	// used when StorageBackend is StorageBackendPebble
	PebbleDir      string
	StorageBackend StorageBackend
	// zero means no periodic checkpoint (shutdown one only)
	CheckpointInterval time.Duration
	// log and data files live in memory (memfile). for testing
	UseVirtualStorage bool
}

func DefaultConfig() *Config {
	return &Config{
		LogFilePath:        DefaultLogFileName,
		DataFilePath:       DefaultDataFileName,
		PebbleDir:          DefaultPebbleDir,
		StorageBackend:     StorageBackendFile,
		CheckpointInterval: 0,
		UseVirtualStorage:  false,
	}
}
