package disk

import (
	"sync/atomic"

	"github.com/dsnet/golib/memfile"
	"github.com/sasha-s/go-deadlock"
)

// VirtualDiskManagerImpl keeps the log and data files on memory.
// contents are lost when the object is dropped. for testing
type VirtualDiskManagerImpl struct {
	db           *memfile.File
	fileName     string
	log          *memfile.File
	fileName_log string
	dbExists     bool
	logExists    bool
	numWrites    uint64
	numFlushes   uint64
	dbFileMutex  *deadlock.Mutex
	logFileMutex *deadlock.Mutex
}

func NewVirtualDiskManagerImpl(dbFilename string, logFilename string) DiskManager {
	return &VirtualDiskManagerImpl{
		db:           memfile.New(make([]byte, 0)),
		fileName:     dbFilename,
		log:          memfile.New(make([]byte, 0)),
		fileName_log: logFilename,
		dbFileMutex:  new(deadlock.Mutex),
		logFileMutex: new(deadlock.Mutex),
	}
}

// ShutDown closes of the database file
func (d *VirtualDiskManagerImpl) ShutDown() {
	// do nothing
}

func (d *VirtualDiskManagerImpl) WriteLog(log_data []byte) error {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	d.logExists = true
	if buf := d.log.Bytes(); len(buf) > 0 && buf[len(buf)-1] != '\n' {
		if _, err := d.log.Write([]byte("\n")); err != nil {
			return err
		}
	}
	_, err := d.log.Write(log_data)
	return err
}

func (d *VirtualDiskManagerImpl) SyncLog() error {
	atomic.AddUint64(&d.numFlushes, 1)
	return nil
}

func (d *VirtualDiskManagerImpl) ReadLog() ([]byte, bool, error) {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	if !d.logExists {
		return nil, false, nil
	}
	return copyBytes(d.log.Bytes()), true, nil
}

func (d *VirtualDiskManagerImpl) WriteData(data []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	d.db = memfile.New(copyBytes(data))
	d.dbExists = true
	atomic.AddUint64(&d.numWrites, 1)
	return nil
}

func (d *VirtualDiskManagerImpl) ReadData() ([]byte, bool, error) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if !d.dbExists {
		return nil, false, nil
	}
	return copyBytes(d.db.Bytes()), true, nil
}

func (d *VirtualDiskManagerImpl) GetNumWrites() uint64 {
	return atomic.LoadUint64(&d.numWrites)
}

func (d *VirtualDiskManagerImpl) GetNumFlushes() uint64 {
	return atomic.LoadUint64(&d.numFlushes)
}

func (d *VirtualDiskManagerImpl) RemoveDBFile() {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	d.db = memfile.New(make([]byte, 0))
	d.dbExists = false
}

func (d *VirtualDiskManagerImpl) RemoveLogFile() {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	d.log = memfile.New(make([]byte, 0))
	d.logExists = false
}

func copyBytes(src []byte) []byte {
	ret := make([]byte, len(src))
	copy(ret, src)
	return ret
}
