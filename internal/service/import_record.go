package service

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	appErr "github.com/xxxsen/curato/internal/pkg/errors"
)

// RawRecord wraps one untrusted foreign import record. Every field is read
// through the accessor tables below, never by ad hoc lookups.
type RawRecord struct {
	raw gjson.Result
}

type accessor func(gjson.Result) string

func NewRawRecord(data []byte) RawRecord {
	return RawRecord{raw: gjson.ParseBytes(data)}
}

func rawRecordFromResult(res gjson.Result) RawRecord {
	return RawRecord{raw: res}
}

// ParseRecords splits a JSON array into records.
func ParseRecords(data []byte) ([]RawRecord, error) {
	if !gjson.ValidBytes(data) {
		return nil, appErr.ErrInvalidJSON
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%w: data must be an array", appErr.ErrInvalid)
	}
	items := parsed.Array()
	records := make([]RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, rawRecordFromResult(item))
	}
	return records, nil
}

func field(path string) accessor {
	return func(res gjson.Result) string {
		v := res.Get(path)
		switch v.Type {
		case gjson.String, gjson.Number:
			return v.String()
		}
		return ""
	}
}

func fields(paths ...string) []accessor {
	out := make([]accessor, 0, len(paths))
	for _, p := range paths {
		out = append(out, field(p))
	}
	return out
}

var (
	titleAccessors       = fields("title", "noteTitle")
	descriptionAccessors = fields("description", "noteDesc", "desc")
	bodyAccessors        = fields("content", "noteContent")
	sourceURLAccessors   = fields("sourceUrl", "url", "noteUrl", "link")
	authorAccessors      = fields("author", "authorName", "nickname", "user.nickname", "user.name")
	avatarAccessors      = fields("authorAvatar", "avatar", "user.avatar", "user.image")
	coverAccessors       = fields("imageUrl", "image", "cover")
	categoryAccessors    = fields("categoryId", "category_id")

	commentBodyAccessors   = fields("content", "text")
	commentAuthorAccessors = fields("authorName", "nickname", "user.nickname")
	commentEmailAccessors  = fields("authorEmail")

	galleryPaths     = []string{"imageUrls", "images", "imageList"}
	galleryItemPaths = []string{"url", "urlDefault"}
	sortPaths        = []string{"sort", "sortOrder"}
)

func resolve(res gjson.Result, accessors []accessor) string {
	for _, fn := range accessors {
		if v := fn(res); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (r RawRecord) IsObject() bool {
	return r.raw.IsObject()
}

func (r RawRecord) Title() string       { return resolve(r.raw, titleAccessors) }
func (r RawRecord) Description() string { return resolve(r.raw, descriptionAccessors) }
func (r RawRecord) Body() string        { return resolve(r.raw, bodyAccessors) }
func (r RawRecord) SourceURL() string   { return strings.TrimSpace(resolve(r.raw, sourceURLAccessors)) }
func (r RawRecord) Author() string      { return resolve(r.raw, authorAccessors) }
func (r RawRecord) AvatarURL() string   { return strings.TrimSpace(resolve(r.raw, avatarAccessors)) }
func (r RawRecord) CoverURL() string    { return strings.TrimSpace(resolve(r.raw, coverAccessors)) }
func (r RawRecord) CategoryID() string  { return strings.TrimSpace(resolve(r.raw, categoryAccessors)) }

// GalleryURLs returns the first non-empty image list. Entries may be plain
// strings or objects carrying url/urlDefault; blank entries are skipped.
func (r RawRecord) GalleryURLs() []string {
	for _, path := range galleryPaths {
		list := r.raw.Get(path)
		if !list.IsArray() {
			continue
		}
		urls := make([]string, 0)
		for _, item := range list.Array() {
			var u string
			switch {
			case item.Type == gjson.String:
				u = item.String()
			case item.IsObject():
				u = resolve(item, fields(galleryItemPaths...))
			}
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			return urls
		}
	}
	return nil
}

func (r RawRecord) Tags() []string {
	list := r.raw.Get("tags")
	if !list.IsArray() {
		return []string{}
	}
	tags := make([]string, 0)
	for _, item := range list.Array() {
		if item.Type != gjson.String {
			continue
		}
		if tag := strings.TrimSpace(item.String()); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Published is true unless the record explicitly says false.
func (r RawRecord) Published() bool {
	v := r.raw.Get("published")
	if !v.Exists() || v.Type == gjson.Null {
		return true
	}
	return v.Bool()
}

func (r RawRecord) Featured() bool {
	return r.raw.Get("featured").Bool()
}

func (r RawRecord) SortOrder() int {
	for _, path := range sortPaths {
		if v := r.raw.Get(path); v.Type == gjson.Number {
			return int(v.Int())
		}
	}
	return 0
}

func (r RawRecord) Comments() []RawComment {
	list := r.raw.Get("comments")
	if !list.IsArray() {
		return nil
	}
	items := list.Array()
	comments := make([]RawComment, 0, len(items))
	for _, item := range items {
		comments = append(comments, RawComment{raw: item})
	}
	return comments
}

type RawComment struct {
	raw gjson.Result
}

func (c RawComment) Body() string        { return resolve(c.raw, commentBodyAccessors) }
func (c RawComment) AuthorName() string  { return resolve(c.raw, commentAuthorAccessors) }
func (c RawComment) AuthorEmail() string { return strings.TrimSpace(resolve(c.raw, commentEmailAccessors)) }
