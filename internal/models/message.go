package models

import "time"

// Message is the local record of one remote message (the mirror row).
// The UID is meaningful only together with the UIDValidity it was captured
// under; a UIDVALIDITY change on the folder invalidates UID-based matching
// without invalidating the row itself.
type Message struct {
	ID              int64     `json:"id"`
	AccountID       int64     `json:"account_id"`
	Folder          string    `json:"folder"`
	UID             uint32    `json:"uid"`
	UIDValidity     string    `json:"uidvalidity"`
	MessageID       string    `json:"message_id"`
	GeneratedID     bool      `json:"is_generated_message_id"`
	Fingerprint     string    `json:"fingerprint"`
	LocationKey     string    `json:"location_key"`
	Subject         string    `json:"subject"`
	Sender          string    `json:"sender"`
	Recipients      string    `json:"recipients"`
	CC              string    `json:"cc"`
	ReceivedAt      time.Time `json:"received_at"`
	Summary         string    `json:"summary"`
	HasAttachments  bool      `json:"has_attachments"`
	AttachmentCount int       `json:"attachment_count"`
	IsRead          bool      `json:"is_read"`
	IsDeleted       bool      `json:"is_deleted"`
	RawPath         string    `json:"-"`
}

// MessageRef is the slim projection of a mirrored row the reconciler needs
// to diff a folder against the server's UID set.
type MessageRef struct {
	UID         uint32
	UIDValidity string
	MessageID   string
	Fingerprint string
	RawPath     string
}
