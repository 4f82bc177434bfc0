// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ryogrid/SamehadaWAL/lib/common"
	"github.com/ryogrid/SamehadaWAL/lib/container/hash"
	"github.com/ryogrid/SamehadaWAL/lib/types"
)

// PageEntry is the cached state of one page.
// IsDeleted means the row was deleted by a committed transaction (tombstone)
type PageEntry struct {
	Value     string
	IsDeleted bool
	// incremented on every change. used to detect updates racing with checkpoint
	Version uint64
}

type bufferPoolShard struct {
	latch  common.ReaderWriterLatch
	tables map[string]map[string]*PageEntry
}

// BufferPoolManager holds the committed state: table -> key -> value.
// every page changed since its last persist is in the dirty set
type BufferPoolManager struct {
	shards []*bufferPoolShard
	dirty  mapset.Set[types.PageID]
}

func NewBufferPoolManager() *BufferPoolManager {
	shards := make([]*bufferPoolShard, common.BufferPoolShardNum)
	for ii := range shards {
		shards[ii] = &bufferPoolShard{
			latch:  common.NewRWLatch(),
			tables: make(map[string]map[string]*PageEntry),
		}
	}
	return &BufferPoolManager{shards, mapset.NewSet[types.PageID]()}
}

func (b *BufferPoolManager) getShard(table string, key string) *bufferPoolShard {
	return b.shards[hash.HashPageKey(table, key)%uint32(len(b.shards))]
}

// caller must hold the write latch of shard
func (b *BufferPoolManager) setEntry(shard *bufferPoolShard, table string, key string, value string, isDeleted bool) {
	tbl, ok := shard.tables[table]
	if !ok {
		tbl = make(map[string]*PageEntry)
		shard.tables[table] = tbl
	}
	entry, ok := tbl[key]
	if !ok {
		entry = &PageEntry{}
		tbl[key] = entry
	}
	entry.Value = value
	entry.IsDeleted = isDeleted
	entry.Version++
	b.dirty.Add(types.NewPageID(table, key))
}

// Put sets committed value of the page and marks it dirty
func (b *BufferPoolManager) Put(table string, key string, value string) {
	shard := b.getShard(table, key)
	shard.latch.WLock()
	defer shard.latch.WUnlock()

	b.setEntry(shard, table, key, value, false)
	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO_DETAIL, "BPM::Put %s:%s=%s\n", table, key, value)
	}
}

// Delete installs a tombstone and marks the page dirty
func (b *BufferPoolManager) Delete(table string, key string) {
	shard := b.getShard(table, key)
	shard.latch.WLock()
	defer shard.latch.WUnlock()

	b.setEntry(shard, table, key, "", true)
	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO_DETAIL, "BPM::Delete %s:%s\n", table, key)
	}
}

// Get returns the committed value. a tombstone reads as absent
func (b *BufferPoolManager) Get(table string, key string) (string, bool) {
	shard := b.getShard(table, key)
	shard.latch.RLock()
	defer shard.latch.RUnlock()

	if tbl, ok := shard.tables[table]; ok {
		if entry, ok := tbl[key]; ok && !entry.IsDeleted {
			return entry.Value, true
		}
	}
	return "", false
}

// GetEntry returns a copy of the cached entry, tombstone included
func (b *BufferPoolManager) GetEntry(pageID types.PageID) (PageEntry, bool) {
	table, key := pageID.GetTable(), pageID.GetKey()
	shard := b.getShard(table, key)
	shard.latch.RLock()
	defer shard.latch.RUnlock()

	if tbl, ok := shard.tables[table]; ok {
		if entry, ok := tbl[key]; ok {
			return *entry, true
		}
	}
	return PageEntry{}, false
}

// GetDirtyPages returns a snapshot of the dirty set
func (b *BufferPoolManager) GetDirtyPages() []types.PageID {
	return b.dirty.ToSlice()
}

func (b *BufferPoolManager) GetDirtyPageNum() int {
	return b.dirty.Cardinality()
}

func (b *BufferPoolManager) IsDirty(pageID types.PageID) bool {
	return b.dirty.Contains(pageID)
}

// MarkClean removes the page from the dirty set unconditionally
func (b *BufferPoolManager) MarkClean(pageID types.PageID) {
	shard := b.getShard(pageID.GetTable(), pageID.GetKey())
	shard.latch.WLock()
	defer shard.latch.WUnlock()

	b.dirty.Remove(pageID)
}

// MarkCleanIfUnchanged removes the page from the dirty set only when the entry
// is still at version. returns false when the page was changed after the
// version was read, in which case it stays dirty
func (b *BufferPoolManager) MarkCleanIfUnchanged(pageID types.PageID, version uint64) bool {
	table, key := pageID.GetTable(), pageID.GetKey()
	shard := b.getShard(table, key)
	shard.latch.WLock()
	defer shard.latch.WUnlock()

	if tbl, ok := shard.tables[table]; ok {
		if entry, ok := tbl[key]; ok && entry.Version != version {
			return false
		}
	}
	b.dirty.Remove(pageID)
	return true
}

// Snapshot returns a copy of all live rows: table -> key -> value
func (b *BufferPoolManager) Snapshot() map[string]map[string]string {
	ret := make(map[string]map[string]string)
	for _, shard := range b.shards {
		shard.latch.RLock()
		for table, tbl := range shard.tables {
			for key, entry := range tbl {
				if entry.IsDeleted {
					continue
				}
				dst, ok := ret[table]
				if !ok {
					dst = make(map[string]string)
					ret[table] = dst
				}
				dst[key] = entry.Value
			}
		}
		shard.latch.RUnlock()
	}
	return ret
}
