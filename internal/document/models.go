package document

import "time"

// Record is the canonical document state. Exactly one document actor owns a
// record at a time; everything else sees copies or the Metadata projection.
// OwnerID never changes after creation and Version increments by exactly one
// on every accepted write.
type Record struct {
	DocID     string    `json:"docId" bson:"_id"`
	OwnerID   string    `json:"ownerId" bson:"ownerId"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	Tags      []string  `json:"tags" bson:"tags"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Version   int64     `json:"version" bson:"version"`
}

// Metadata is the projection of a Record replicated into its owner's index.
type Metadata struct {
	DocID     string    `json:"docId" bson:"docId"`
	Title     string    `json:"title" bson:"title"`
	Tags      []string  `json:"tags" bson:"tags"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Version   int64     `json:"version" bson:"version"`
}

// Patch is a partial write. Nil pointer fields keep the prior value, which
// distinguishes "not provided" from "set to empty". Initialize marks the
// first write of a new document and never comes from a request body.
type Patch struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	Initialize bool      `json:"-"`
}

// New builds a version-1 record from an initialize write.
func New(docID, ownerID string, p Patch, lim TagLimits, now time.Time) *Record {
	r := &Record{
		DocID:     docID,
		OwnerID:   ownerID,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Tags != nil {
		r.Tags = SanitizeTags(*p.Tags, lim)
	}
	return r
}

// Merge returns a new record with the patch applied, version incremented and
// UpdatedAt refreshed. The receiver is left untouched so in-flight flushes
// can keep snapshotting it safely.
func (r *Record) Merge(p Patch, lim TagLimits, now time.Time) *Record {
	next := *r
	next.Tags = append([]string(nil), r.Tags...)
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Content != nil {
		next.Content = *p.Content
	}
	if p.Tags != nil {
		next.Tags = SanitizeTags(*p.Tags, lim)
	}
	next.Version = r.Version + 1
	next.UpdatedAt = now
	return &next
}

// Metadata returns the index projection of the record.
func (r *Record) Metadata() Metadata {
	return Metadata{
		DocID:     r.DocID,
		Title:     r.Title,
		Tags:      append([]string(nil), r.Tags...),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
}
