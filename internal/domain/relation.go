package domain

// Relation links one bookmark into one group. The same bookmark may appear
// in several groups, each time with its own title and rank.
type Relation struct {
	// ID is always RelationID(BookmarkID, GroupID).
	ID         string `json:"id" yaml:"id" validate:"required"`
	BookmarkID string `json:"bookmarkId" yaml:"bookmarkId" validate:"required"`
	GroupID    string `json:"groupId" yaml:"groupId" validate:"required"`

	// Title is shown for the bookmark in this group's context.
	Title string `json:"title" yaml:"title"`

	// Order is the 0-based rank within the owning group.
	Order int `json:"order" yaml:"order"`

	CreatedAt int64 `json:"createdAt" yaml:"createdAt"`
}

// RelationID derives the composite identity of a bookmark/group pair.
func RelationID(bookmarkID, groupID string) string {
	return bookmarkID + "_" + groupID
}

// Rekey points the relation at new endpoints and recomputes its id.
func (r *Relation) Rekey(bookmarkID, groupID string) {
	r.BookmarkID = bookmarkID
	r.GroupID = groupID
	r.ID = RelationID(bookmarkID, groupID)
}
