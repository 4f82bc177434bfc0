package disk

// PageStorage is the persistent key/value mirror of the committed state.
// it is mutated by checkpoint only (and by its own initial load)
type PageStorage interface {
	PersistPage(table string, key string, value string) error
	RemovePage(table string, key string) error
	ReadPage(table string, key string) (string, bool)
	// deep copy of all rows: table -> key -> value
	Contents() map[string]map[string]string
	Close() error
}
