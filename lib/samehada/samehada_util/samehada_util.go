package samehada_util

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// FormatContents renders table -> key -> value map as sorted lines for display
func FormatContents(contents map[string]map[string]string) string {
	tables := maps.Keys(contents)
	slices.Sort(tables)

	var sb strings.Builder
	for _, table := range tables {
		keys := maps.Keys(contents[table])
		slices.Sort(keys)
		for _, key := range keys {
			sb.WriteString(fmt.Sprintf("  %s.%s = %s\n", table, key, contents[table][key]))
		}
	}
	return sb.String()
}
