// Package community implements the flat-file post feed: posts, comments,
// likes and the admin curation flags.
package community

// Comment is one reply on a post.
type Comment struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserAvatarURL string `json:"userAvatarUrl,omitempty"`
	Text          string `json:"text"`
	Timestamp     int64  `json:"timestamp"`
}

// Post is one community feed entry. Timestamps are Unix milliseconds.
// AssociatedPersonaData is the shareable persona snapshot other users can
// import; its inline avatar is externalized at creation time.
type Post struct {
	ID                         string         `json:"id"`
	UserID                     string         `json:"userId"`
	UserName                   string         `json:"userName"`
	UserAvatarURL              string         `json:"userAvatarUrl,omitempty"`
	Title                      string         `json:"title"`
	Content                    string         `json:"content"`
	AssociatedPersonaID        string         `json:"associatedPersonaId,omitempty"`
	AssociatedPersonaName      string         `json:"associatedPersonaName,omitempty"`
	AssociatedPersonaAvatarURL string         `json:"associatedPersonaAvatarUrl,omitempty"`
	AssociatedPersonaData      map[string]any `json:"associatedPersonaData,omitempty"`
	Tags                       []string       `json:"tags,omitempty"`
	Timestamp                  int64          `json:"timestamp"`
	Likes                      int            `json:"likes"`
	Comments                   []Comment      `json:"comments"`
	CommentCount               int            `json:"commentCount"`
	IsRecommended              bool           `json:"isRecommended"`
	IsManuallyHot              bool           `json:"isManuallyHot"`
}
