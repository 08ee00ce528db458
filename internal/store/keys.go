package store

import "sync"

// Key layout:
//
//	{collection}:{id}                          primary record
//	{collection}:idx:{index}:{key}:{id}        index entry, value = id
//	sys:schema                                 schema version marker
//
// Ids are NanoID-based and never contain ':', and no collection is named
// "idx", so the shapes cannot collide.

// keyPool provides reusable byte slices for building database keys on the
// read path. This reduces allocations on the hot path of database operations.
var keyPool = sync.Pool{
	New: func() any {
		// Pre-allocate 256 bytes which covers every key shape:
		// - Collection name (5-10 bytes)
		// - ":idx:" + index name (up to 16 bytes)
		// - Encoded timestamp or novel id (up to 30 bytes)
		// - ":" + NanoID-based id (25+ bytes)
		return make([]byte, 0, 256)
	},
}

// recordKey builds the primary key {collection}:{id} from a pooled buffer.
// Pooled keys are for Get and iterator prefixes only: Badger retains Set and
// Delete keys until commit, so write keys go through the append builders.
// Callers MUST call releaseKey when done with the key.
func recordKey(c Collection, id string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0] // Reset length, keep capacity
	return appendRecordKey(buf, c, id)
}

// recordPrefix builds the scan prefix {collection}: for full-collection
// walks from a pooled buffer.
// Callers MUST call releaseKey when done with the key.
func recordPrefix(c Collection) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, c...)
	buf = append(buf, ':')
	return buf
}

// indexPrefix builds the scan prefix for an index from a pooled buffer.
// With a key it narrows to one group ({collection}:idx:{index}:{key}:); with
// an empty key it covers the whole index ({collection}:idx:{index}:), which
// visits entries in index-key order.
// Callers MUST call releaseKey when done with the key.
func indexPrefix(c Collection, idx Index, key string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, c...)
	buf = append(buf, ":idx:"...)
	buf = append(buf, idx...)
	buf = append(buf, ':')
	if key != "" {
		buf = append(buf, key...)
		buf = append(buf, ':')
	}
	return buf
}

// appendRecordKey appends the primary key to dst, allocating when dst is
// nil. Use this form for Set/Delete, where the transaction keeps the slice.
func appendRecordKey(dst []byte, c Collection, id string) []byte {
	dst = append(dst, c...)
	dst = append(dst, ':')
	dst = append(dst, id...)
	return dst
}

// appendIndexKey appends an index entry key to dst, allocating when dst is
// nil. Use this form for Set/Delete, where the transaction keeps the slice.
func appendIndexKey(dst []byte, c Collection, idx Index, key, id string) []byte {
	dst = append(dst, c...)
	dst = append(dst, ":idx:"...)
	dst = append(dst, idx...)
	dst = append(dst, ':')
	dst = append(dst, key...)
	dst = append(dst, ':')
	dst = append(dst, id...)
	return dst
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Only pool buffers that have reasonable capacity
	// Avoids keeping oversized buffers in the pool
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
