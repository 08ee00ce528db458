package api

// API limits and constants.
const (
	// MaxImagePayload is the maximum accepted image payload size (10 MB).
	// Base64 data URLs inflate the raw bytes by roughly a third, so this
	// admits images up to about 7 MB on disk.
	MaxImagePayload = 10 << 20

	// MaxBackupUpload is the maximum accepted backup document size (100 MB).
	MaxBackupUpload = 100 << 20
)

// Cache-Control header values.
const (
	CacheOneDay  = "public, max-age=86400"
	CacheNoStore = "no-cache"
)
