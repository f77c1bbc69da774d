package model

// Identity is the verified viewer behind a request. The zero value is an
// anonymous viewer.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Anonymous reports whether no viewer was resolved.
func (i Identity) Anonymous() bool {
	return i.UID == ""
}

// ArticleView is the response shape: the stored article plus the
// viewer-relative canUpvote flag, which is never persisted.
type ArticleView struct {
	Article
	CanUpvote bool `json:"canUpvote"`
}

// NewArticleView composes the response for the given viewer.
func NewArticleView(a *Article, viewer Identity) *ArticleView {
	a.Normalize()
	return &ArticleView{
		Article:   *a,
		CanUpvote: a.CanUpvote(viewer),
	}
}
