package hash

import (
	"testing"

	testingpkg "github.com/ryogrid/SamehadaWAL/lib/testing/testing_assert"
)

func TestHashPageKeyIsStable(t *testing.T) {
	testingpkg.Equals(t, HashPageKey("accounts", "alice"), HashPageKey("accounts", "alice"))
}

func TestHashPageKeySeparatesParts(t *testing.T) {
	testingpkg.Assert(t, HashPageKey("ab", "c") != HashPageKey("a", "bc"), "table/key boundary must affect the hash")
}
