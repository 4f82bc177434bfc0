package types

import (
	pair "github.com/notEpsilon/go-pair"
)

// PageID identifies a unit of cached state. in this storage a page is
// a single row: pair<table name, key>
type PageID pair.Pair[string, string]

func NewPageID(table string, key string) PageID {
	return PageID{First: table, Second: key}
}

func (id PageID) GetTable() string { return id.First }
func (id PageID) GetKey() string   { return id.Second }

func (id PageID) String() string {
	return id.First + ":" + id.Second
}
