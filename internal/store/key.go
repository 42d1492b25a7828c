package store

import "strconv"

const (
	// KeyPrefix is shared by every schema version of the collection.
	KeyPrefix = "ledger_data_v"
	// SchemaVersion is the version of the bill array layout read and written.
	SchemaVersion = 1
	// CorruptSuffix marks the side entry holding an unreadable blob.
	CorruptSuffix = ".corrupt"
)

// Key is the storage key of the current schema version, "ledger_data_v1".
var Key = VersionKey(SchemaVersion)

// VersionKey returns the storage key for a schema version.
func VersionKey(version int) string {
	return KeyPrefix + strconv.Itoa(version)
}

// MaxCorruptCopies bounds how many unreadable blobs are kept per key.
const MaxCorruptCopies = 100

// CorruptKey is where the first unreadable blob under key is preserved.
func CorruptKey(key string) string {
	return key + CorruptSuffix
}

// CorruptKeyN names the n-th preserved blob: CorruptKey for n <= 1, then
// "<key>.corrupt.2", "<key>.corrupt.3", ...
func CorruptKeyN(key string, n int) string {
	if n <= 1 {
		return CorruptKey(key)
	}
	return CorruptKey(key) + "." + strconv.Itoa(n)
}
