package domain

import "time"

// AssetKind categorizes a stored generation artifact.
type AssetKind string

const (
	AssetKindStoryText AssetKind = "story_text"
	AssetKindImage     AssetKind = "image"
	AssetKindAudio     AssetKind = "audio"
)

// Asset is one persisted artifact produced by a job stage.
type Asset struct {
	ID         string
	JobID      string
	OwnerID    string
	Kind       AssetKind
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
