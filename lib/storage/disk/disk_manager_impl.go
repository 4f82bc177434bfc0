// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

// DiskManagerImpl is the disk implementation of DiskManager
type DiskManagerImpl struct {
	fileName     string
	log          *os.File
	fileName_log string
	numWrites    uint64
	numFlushes   uint64
	dbFileMutex  *deadlock.Mutex
	logFileMutex *deadlock.Mutex
}

// NewDiskManagerImpl returns a DiskManager instance.
// the log file is created on first WriteLog, so a fresh instance
// does not make "no log file" state to disappear
func NewDiskManagerImpl(dbFilename string, logFilename string) DiskManager {
	return &DiskManagerImpl{
		fileName:     dbFilename,
		fileName_log: logFilename,
		dbFileMutex:  new(deadlock.Mutex),
		logFileMutex: new(deadlock.Mutex),
	}
}

// ShutDown closes the log file
func (d *DiskManagerImpl) ShutDown() {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	if d.log != nil {
		d.log.Close()
		d.log = nil
	}
}

func (d *DiskManagerImpl) openLogIfNeeded() error {
	if d.log != nil {
		return nil
	}
	file, err := os.OpenFile(d.fileName_log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return errors.Wrapf(err, "can't open log file %s", d.fileName_log)
	}
	if err = terminateTornTail(file); err != nil {
		file.Close()
		return err
	}
	d.log = file
	return nil
}

// terminateTornTail writes a newline when the log ends in the middle of a line.
// a crash can leave such a fragment and the next record must not be glued to it
func terminateTornTail(file *os.File) error {
	fi, err := file.Stat()
	if err != nil {
		return errors.Wrap(err, "can't stat log file")
	}
	if fi.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err = file.ReadAt(last, fi.Size()-1); err != nil {
		return errors.Wrap(err, "I/O error while reading log tail")
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err = file.Write([]byte("\n")); err != nil {
		return errors.Wrap(err, "I/O error while terminating torn log line")
	}
	return nil
}

/**
 * Write the contents of the log into disk file
 * Only perform sequence write. durability is given by SyncLog
 */
func (d *DiskManagerImpl) WriteLog(log_data []byte) error {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	if err := d.openLogIfNeeded(); err != nil {
		return err
	}
	if _, err := d.log.Write(log_data); err != nil {
		return errors.Wrap(err, "I/O error while writing log")
	}
	return nil
}

func (d *DiskManagerImpl) SyncLog() error {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	atomic.AddUint64(&d.numFlushes, 1)
	if d.log == nil {
		// nothing was appended yet
		return nil
	}
	if err := d.log.Sync(); err != nil {
		return errors.Wrap(err, "I/O error while syncing log")
	}
	return nil
}

func (d *DiskManagerImpl) ReadLog() ([]byte, bool, error) {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	return readWholeFile(d.fileName_log)
}

// WriteData replaces the data file. content goes to a temporary file which
// is renamed over the data file after fsync, so a failed write leaves the
// old file as it was
func (d *DiskManagerImpl) WriteData(data []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	tmpName := d.fileName + ".tmp"
	file, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return errors.Wrapf(err, "can't open temporary data file %s", tmpName)
	}
	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "I/O error while writing data file")
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "I/O error while syncing data file")
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "I/O error while closing data file")
	}
	if err = os.Rename(tmpName, d.fileName); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "can't replace data file %s", d.fileName)
	}
	syncDir(filepath.Dir(d.fileName))

	atomic.AddUint64(&d.numWrites, 1)
	return nil
}

func (d *DiskManagerImpl) ReadData() ([]byte, bool, error) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	return readWholeFile(d.fileName)
}

// GetNumWrites returns the number of data file rewrites
func (d *DiskManagerImpl) GetNumWrites() uint64 {
	return atomic.LoadUint64(&d.numWrites)
}

// GetNumFlushes returns the number of log syncs
func (d *DiskManagerImpl) GetNumFlushes() uint64 {
	return atomic.LoadUint64(&d.numFlushes)
}

// ATTENTION: this method can be call after calling of Shutdown method
func (d *DiskManagerImpl) RemoveDBFile() {
	os.Remove(d.fileName)
}

// ATTENTION: this method can be call after calling of Shutdown method
func (d *DiskManagerImpl) RemoveLogFile() {
	os.Remove(d.fileName_log)
}

func readWholeFile(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, true, errors.Wrapf(err, "can't read %s", name)
	}
	return data, true, nil
}

// best effort. rename is durable only after the directory entry is synced
func syncDir(dir string) {
	if f, err := os.Open(dir); err == nil {
		f.Sync()
		f.Close()
	}
}
