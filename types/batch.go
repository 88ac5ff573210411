package types

import "time"

// MediaKind is the kind of media message a file arrived in.
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaPhoto    MediaKind = "photo"
)

// FileRecord describes one archived file. RemoteRef is the message id of the copy in the
// storage channel.
type FileRecord struct {
	RemoteRef     int       `json:"remote_ref"`
	DisplayName   string    `json:"display_name"`
	SizeBytes     int64     `json:"size_bytes"`
	SizeFormatted string    `json:"size_formatted"`
	MimeType      string    `json:"mime_type"`
	MediaKind     MediaKind `json:"media_kind"`
	ReceivedAt    time.Time `json:"timestamp"`
}

// Batch is a finalized, shareable set of files.
type Batch struct {
	BatchID   string       `json:"batch_id"`
	Owner     int64        `json:"owner"`
	Files     []FileRecord `json:"files"`
	CreatedAt time.Time    `json:"created_at"`
	IsActive  bool         `json:"is_active"`
}

// TotalSize sums SizeBytes over all files.
func (b *Batch) TotalSize() int64 {
	return TotalSize(b.Files)
}

func TotalSize(files []FileRecord) int64 {
	var total int64
	for _, f := range files {
		total += f.SizeBytes
	}
	return total
}
