// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"os"
	"path/filepath"

	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/errors"
	"github.com/sasha-s/go-deadlock"
)

// DiskManagerTest is the disk implementation of DiskManager for testing purposes
type DiskManagerTest struct {
	dir string
	DiskManager
}

// NewDiskManagerTest returns a DiskManager instance for testing purposes
func NewDiskManagerTest() DiskManager {
	// Retrieve a temporary path.
	dir, err := os.MkdirTemp("", "samehada.")
	if err != nil {
		panic(err)
	}
	dbPath := filepath.Join(dir, common.DefaultDataFileName)
	logPath := filepath.Join(dir, common.DefaultLogFileName)

	if !common.EnableOnMemStorage || common.TempSuppressOnMemStorage {
		diskManager := NewDiskManagerImpl(dbPath, logPath)
		return &DiskManagerTest{dir, diskManager}
	} else {
		diskManager := NewVirtualDiskManagerImpl(dbPath, logPath)
		return &DiskManagerTest{dir, diskManager}
	}
}

// ShutDown closes of the database file
func (d *DiskManagerTest) ShutDown() {
	d.DiskManager.ShutDown()
	os.RemoveAll(d.dir)
}

const ErrInjectedFault = errors.Error("injected I/O fault")

// DiskManagerFaultInjector wraps a DiskManager and fails selected
// operations on demand. for testing of error paths
type DiskManagerFaultInjector struct {
	DiskManager
	mutex          *deadlock.Mutex
	logWriteFault  bool
	logSyncFault   bool
	dataWriteFault bool
	dataReadFault  bool
}

func NewDiskManagerFaultInjector(dm DiskManager) *DiskManagerFaultInjector {
	return &DiskManagerFaultInjector{DiskManager: dm, mutex: new(deadlock.Mutex)}
}

func (d *DiskManagerFaultInjector) SetLogWriteFault(on bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.logWriteFault = on
}

func (d *DiskManagerFaultInjector) SetLogSyncFault(on bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.logSyncFault = on
}

func (d *DiskManagerFaultInjector) SetDataWriteFault(on bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.dataWriteFault = on
}

func (d *DiskManagerFaultInjector) SetDataReadFault(on bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.dataReadFault = on
}

func (d *DiskManagerFaultInjector) WriteLog(data []byte) error {
	d.mutex.Lock()
	fault := d.logWriteFault
	d.mutex.Unlock()
	if fault {
		return ErrInjectedFault
	}
	return d.DiskManager.WriteLog(data)
}

func (d *DiskManagerFaultInjector) SyncLog() error {
	d.mutex.Lock()
	fault := d.logSyncFault
	d.mutex.Unlock()
	if fault {
		return ErrInjectedFault
	}
	return d.DiskManager.SyncLog()
}

func (d *DiskManagerFaultInjector) WriteData(data []byte) error {
	d.mutex.Lock()
	fault := d.dataWriteFault
	d.mutex.Unlock()
	if fault {
		return ErrInjectedFault
	}
	return d.DiskManager.WriteData(data)
}

func (d *DiskManagerFaultInjector) ReadData() ([]byte, bool, error) {
	d.mutex.Lock()
	fault := d.dataReadFault
	d.mutex.Unlock()
	if fault {
		return nil, true, ErrInjectedFault
	}
	return d.DiskManager.ReadData()
}
