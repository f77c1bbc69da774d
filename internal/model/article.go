package model

// Comment is a single entry in an article's comment thread.
type Comment struct {
	PostedBy string `json:"postedBy" bson:"postedBy" yaml:"postedBy"`
	Text     string `json:"text" bson:"text" yaml:"text"`
}

// Article is the persisted document, keyed by its unique name.
type Article struct {
	Name      string    `json:"name" bson:"name" yaml:"name"`
	Upvotes   int       `json:"upvotes" bson:"upvotes" yaml:"upvotes"`
	UpvoteIDs []string  `json:"upvoteIds" bson:"upvoteIds" yaml:"upvoteIds"`
	Comments  []Comment `json:"comments" bson:"comments" yaml:"comments"`
}

// NewArticle creates an Article with no votes and no comments.
func NewArticle(name string) Article {
	return Article{
		Name:      name,
		UpvoteIDs: []string{},
		Comments:  []Comment{},
	}
}

// Normalize replaces nil sequences so they encode as [] rather than null.
func (a *Article) Normalize() {
	if a.UpvoteIDs == nil {
		a.UpvoteIDs = []string{}
	}
	if a.Comments == nil {
		a.Comments = []Comment{}
	}
}

// HasUpvoted reports whether uid is already counted.
func (a *Article) HasUpvoted(uid string) bool {
	for _, id := range a.UpvoteIDs {
		if id == uid {
			return true
		}
	}
	return false
}

// CanUpvote is true for a known viewer who has not upvoted yet.
func (a *Article) CanUpvote(viewer Identity) bool {
	return viewer.UID != "" && !a.HasUpvoted(viewer.UID)
}
