package models

import "time"

// Category is one of the fixed navigation buckets files are grouped into.
type Category string

const (
	CategoryDocuments Category = "documents"
	CategoryImages    Category = "images"
	CategoryVideos    Category = "videos"
	CategoryMusic     Category = "music"
	CategoryOthers    Category = "others"
	CategoryTrash     Category = "trash"
)

// Pseudo-categories accepted as active views alongside the fixed buckets.
// Folder views use the "folder-{id}" form.
const (
	ViewAll          = "all"
	ViewDashboard    = "dashboard"
	FolderViewPrefix = "folder-"
)

// FileRecord is the canonical metadata entry for one uploaded file. The
// record lives in the local key-value store; the blob itself lives in
// object storage under RemotePath.
type FileRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	// SizeLabel is the human-readable size ("2.00 MB"). It is also the
	// sole source for quota accounting, parsed back to bytes on read.
	SizeLabel   string `json:"sizeLabel"`
	CreatedDate string `json:"createdDate"`
	RemoteURL   string `json:"remoteUrl,omitempty"`
	RemotePath  string `json:"remotePath,omitempty"`
	IsDeleted   bool   `json:"isDeleted"`
	// CategoryOverride, when set, wins over mime-type inference.
	CategoryOverride *string `json:"categoryOverride,omitempty"`
	FolderID         *string `json:"folderId,omitempty"`
	OwnerID          string  `json:"ownerId,omitempty"`
}

type FolderRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// StorageUsage is derived from the live file collection on every read and
// never persisted.
type StorageUsage struct {
	UsedBytes  int64   `json:"usedBytes"`
	TotalBytes int64   `json:"totalBytes"`
	Percent    float64 `json:"percent"`
}
