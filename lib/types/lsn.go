// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package types

import (
	"strconv"
)

// LSN is the type of the log identifier
type LSN uint64

func (lsn LSN) String() string {
	return strconv.FormatUint(uint64(lsn), 10)
}

// NewLSNFromString parses the decimal form written in log files
func NewLSNFromString(str string) (LSN, error) {
	ret, err := strconv.ParseUint(str, 10, 64)
	return LSN(ret), err
}
