package model

type Comment struct {
	ID            string  `json:"id"`
	ContentID     string  `json:"content_id"`
	AuthorName    string  `json:"author_name"`
	AuthorEmail   string  `json:"-"`
	AuthorWebsite string  `json:"author_website"`
	Body          string  `json:"body"`
	Approved      bool    `json:"approved"`
	ParentID      *string `json:"parent_id"`
	Ctime         int64   `json:"ctime"`
	Mtime         int64   `json:"mtime"`
}
