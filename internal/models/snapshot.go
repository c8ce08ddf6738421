package models

import (
	"fmt"
	"strings"
	"time"
)

// ShortIDLength is the number of hash characters shown to users
const ShortIDLength = 7

// InitialMessage is the message of the snapshot created by lifecycle init
const InitialMessage = "Initial commit"

// Snapshot represents one committed version of a project folder
type Snapshot struct {
	Hash        string    `json:"hash"`
	ShortHash   string    `json:"short_hash"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	Date        time.Time `json:"date"`
	Message     string    `json:"message"`
}

// Subject returns the first line of the message
func (s Snapshot) Subject() string {
	subject, _, _ := strings.Cut(s.Message, "\n")
	return subject
}

// ShortID truncates a hash to ShortIDLength characters
func ShortID(hash string) string {
	if len(hash) <= ShortIDLength {
		return hash
	}
	return hash[:ShortIDLength]
}

// RestoreMessage is the message of the snapshot recorded after a restore
// Format: Restored to version <shortId>
func RestoreMessage(shortID string) string {
	return fmt.Sprintf("Restored to version %s", shortID)
}

// AutoSaveMessage is the message used when uncommitted work is saved
// before restoring to another version
func AutoSaveMessage(shortID string) string {
	return fmt.Sprintf("Auto-save before restoring to version %s", shortID)
}
