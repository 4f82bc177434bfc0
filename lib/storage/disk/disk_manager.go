// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

/**
 * DiskManager owns the two backing files of the storage: the append only log file
 * and the data file of the persistent store. Nothing else touches these files directly.
 */
type DiskManager interface {
	// appends to the log file. data is not guaranteed to be durable until SyncLog returns
	WriteLog([]byte) error
	SyncLog() error
	// returns whole content of the log file. second value is false when the file does not exist
	ReadLog() ([]byte, bool, error)
	// replaces whole content of the data file. on failure the previous content is kept
	WriteData([]byte) error
	ReadData() ([]byte, bool, error)
	GetNumWrites() uint64
	GetNumFlushes() uint64
	ShutDown()
	// ATTENTION: these can be called after ShutDown only
	RemoveDBFile()
	RemoveLogFile()
}
