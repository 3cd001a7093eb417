package index

import (
	"time"

	"github.com/quillsync/quillsync/internal/document"
)

// Snapshot is the persisted state of one user's index actor: the identity
// pin (UserID, doubling as the storage key) and the docId→metadata catalog.
// Entries only ever appear here as a consequence of a document write being
// pushed or forwarded; the index never invents them.
type Snapshot struct {
	UserID    string                       `json:"userId" bson:"_id"`
	Entries   map[string]document.Metadata `json:"entries" bson:"entries"`
	UpdatedAt time.Time                    `json:"updatedAt" bson:"updatedAt"`
}

func NewSnapshot(userID string) *Snapshot {
	return &Snapshot{
		UserID:  userID,
		Entries: make(map[string]document.Metadata),
	}
}
