package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeImage = "image/"
	MimeCSV   = "text/csv"
)

var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
