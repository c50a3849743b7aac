package api

import (
	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/models"
)

// CreateEntryRequest is the request body for creating an entry.
type CreateEntryRequest = entryservice.CreateInput

// UpdateEntryRequest is the request body for patching an entry.
type UpdateEntryRequest = entryservice.Patch

// EntryDetail is a single entry plus its fingerprint.
type EntryDetail struct {
	models.Entry
	Fingerprint string `json:"fingerprint"`
}

// EntryListResponse wraps query results.
type EntryListResponse struct {
	Entries []models.Entry `json:"entries"`
	Total   int            `json:"total"`
}

// BackupResponse reports where a backup was written.
type BackupResponse struct {
	Path string `json:"path"`
}

func detail(e models.Entry) EntryDetail {
	return EntryDetail{Entry: e, Fingerprint: entryservice.Fingerprint(e)}
}
