package memorystore

import (
	"testing"

	"github.com/fedimint-go/fedimintd/database"
	"github.com/fedimint-go/fedimintd/database/dbtest"
)

func TestMemoryStore(t *testing.T) {
	dbtest.TestKeyValueStoreSuite(t, func() database.KeyValueStore {
		return New()
	})
}
