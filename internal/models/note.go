// Package models defines the domain types shared across vaultfill packages.
package models

import "time"

// NoteMetadata is the lightweight representation returned by vault listings.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

