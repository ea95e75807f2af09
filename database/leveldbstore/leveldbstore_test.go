package leveldbstore

import (
	"path/filepath"
	"testing"

	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/database/dbtest"
)

func TestLevelDBStore(t *testing.T) {
	dir := t.TempDir()
	n := 0
	dbtest.TestKeyValueStoreSuite(t, func() database.KeyValueStore {
		n++
		s, err := Open(filepath.Join(dir, "db-"+string(rune('a'+n))))
		if err != nil {
			t.Fatal(err)
		}
		return s
	})
}
