// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package types

import (
	"strconv"
)

// TxnID is the type of the transaction identifier
type TxnID uint64

func (id TxnID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// NewTxnIDFromString parses the decimal form written in log files
func NewTxnIDFromString(str string) (TxnID, error) {
	ret, err := strconv.ParseUint(str, 10, 64)
	return TxnID(ret), err
}
