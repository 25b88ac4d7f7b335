package model

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
	Active      bool   `json:"active"`
	SortOrder   int    `json:"sort_order"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}
