package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/curato/internal/model"
	"github.com/xxxsen/curato/internal/pkg/dbutil"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
)

var contentFields = []string{
	"id", "title", "description", "body", "image_url", "image_urls_json", "source_url",
	"category_id", "tags_json", "author", "author_avatar_url", "featured", "published",
	"view_count", "like_count", "sort_order", "ctime", "mtime",
}

type ContentRepo struct {
	db *sql.DB
}

func NewContentRepo(db *sql.DB) *ContentRepo {
	return &ContentRepo{db: db}
}

func (r *ContentRepo) Create(ctx context.Context, content *model.Content) error {
	data, err := contentColumns(content)
	if err != nil {
		return err
	}
	data["id"] = content.ID
	data["view_count"] = content.ViewCount
	data["like_count"] = content.LikeCount
	data["ctime"] = content.Ctime
	sqlStr, args, err := builder.BuildInsert("contents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ContentRepo) Update(ctx context.Context, content *model.Content) error {
	update, err := contentColumns(content)
	if err != nil {
		return err
	}
	sqlStr, args, err := builder.BuildUpdate("contents", map[string]interface{}{"id": content.ID}, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *ContentRepo) GetByID(ctx context.Context, id string) (*model.Content, error) {
	sqlStr, args, err := builder.BuildSelect("contents", map[string]interface{}{"id": id}, contentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	return scanContent(rows)
}

func (r *ContentRepo) List(ctx context.Context, filter model.ContentFilter) ([]model.Content, error) {
	sqlStr := "SELECT id, title, description, body, image_url, image_urls_json, source_url, category_id, tags_json, author, author_avatar_url, featured, published, view_count, like_count, sort_order, ctime, mtime FROM contents WHERE 1 = 1"
	args := []interface{}{}
	if !filter.IncludeUnpublished {
		sqlStr += " AND published = ?"
		args = append(args, 1)
	}
	if filter.CategoryID != "" {
		sqlStr += " AND category_id = ?"
		args = append(args, filter.CategoryID)
	}
	if filter.Featured != nil {
		sqlStr += " AND featured = ?"
		args = append(args, dbutil.BoolToInt(*filter.Featured))
	}
	if filter.Search != "" {
		sqlStr += " AND (title LIKE ? OR description LIKE ?)"
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}
	sqlStr += " ORDER BY sort_order DESC, ctime DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	sqlStr += " LIMIT ?, ?"
	args = append(args, filter.Offset, limit)

	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Content, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *ContentRepo) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete("contents", map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *ContentRepo) IncrementViewCount(ctx context.Context, id string, mtime int64) error {
	return r.increment(ctx, "view_count", id, mtime)
}

func (r *ContentRepo) IncrementLikeCount(ctx context.Context, id string, mtime int64) error {
	return r.increment(ctx, "like_count", id, mtime)
}

func (r *ContentRepo) increment(ctx context.Context, column, id string, mtime int64) error {
	sqlStr := "UPDATE contents SET " + column + " = " + column + " + 1, mtime = ? WHERE id = ?"
	sqlStr, args := dbutil.Finalize(sqlStr, []interface{}{mtime, id})
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func contentColumns(content *model.Content) (map[string]interface{}, error) {
	gallery := content.GalleryImageURLs
	if gallery == nil {
		gallery = []string{}
	}
	galleryJSON, err := json.Marshal(gallery)
	if err != nil {
		return nil, err
	}
	tags := content.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	var categoryID interface{}
	if content.CategoryID != nil && *content.CategoryID != "" {
		categoryID = *content.CategoryID
	}
	return map[string]interface{}{
		"title":             content.Title,
		"description":       content.Description,
		"body":              content.Body,
		"image_url":         content.CoverImageURL,
		"image_urls_json":   string(galleryJSON),
		"source_url":        content.SourceURL,
		"category_id":       categoryID,
		"tags_json":         string(tagsJSON),
		"author":            content.Author,
		"author_avatar_url": content.AuthorAvatarURL,
		"featured":          dbutil.BoolToInt(content.Featured),
		"published":         dbutil.BoolToInt(content.Published),
		"sort_order":        content.SortOrder,
		"mtime":             content.Mtime,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row rowScanner) (*model.Content, error) {
	var item model.Content
	var galleryJSON, tagsJSON string
	var categoryID sql.NullString
	var featured, published int
	if err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&item.Body,
		&item.CoverImageURL,
		&galleryJSON,
		&item.SourceURL,
		&categoryID,
		&tagsJSON,
		&item.Author,
		&item.AuthorAvatarURL,
		&featured,
		&published,
		&item.ViewCount,
		&item.LikeCount,
		&item.SortOrder,
		&item.Ctime,
		&item.Mtime,
	); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		id := categoryID.String
		item.CategoryID = &id
	}
	item.Featured = featured == 1
	item.Published = published == 1
	item.GalleryImageURLs = []string{}
	if galleryJSON != "" {
		_ = json.Unmarshal([]byte(galleryJSON), &item.GalleryImageURLs)
	}
	item.Tags = []string{}
	if tagsJSON != "" {
		_ = json.Unmarshal([]byte(tagsJSON), &item.Tags)
	}
	return &item, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
