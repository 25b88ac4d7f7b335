package model

// Content is one curated item. CoverImageURL is the single image shown in
// list views; GalleryImageURLs holds every image in display order.
type Content struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Body             string   `json:"body"`
	CoverImageURL    string   `json:"cover_image_url"`
	GalleryImageURLs []string `json:"gallery_image_urls"`
	SourceURL        string   `json:"source_url"`
	CategoryID       *string  `json:"category_id"`
	Tags             []string `json:"tags"`
	Author           string   `json:"author"`
	AuthorAvatarURL  string   `json:"author_avatar_url"`
	Published        bool     `json:"published"`
	Featured         bool     `json:"featured"`
	SortOrder        int      `json:"sort_order"`
	ViewCount        int      `json:"view_count"`
	LikeCount        int      `json:"like_count"`
	Ctime            int64    `json:"ctime"`
	Mtime            int64    `json:"mtime"`
}

type ContentFilter struct {
	CategoryID         string
	Featured           *bool
	Search             string
	IncludeUnpublished bool
	Offset             int
	Limit              int
}
