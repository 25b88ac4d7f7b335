package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/curato/internal/model"
	"github.com/xxxsen/curato/internal/pkg/dbutil"
)

var commentFields = []string{
	"id", "content_id", "author_name", "author_email", "author_website", "body",
	"is_approved", "parent_id", "ctime", "mtime",
}

type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	var parentID interface{}
	if comment.ParentID != nil && *comment.ParentID != "" {
		parentID = *comment.ParentID
	}
	data := map[string]interface{}{
		"id":             comment.ID,
		"content_id":     comment.ContentID,
		"author_name":    comment.AuthorName,
		"author_email":   comment.AuthorEmail,
		"author_website": comment.AuthorWebsite,
		"body":           comment.Body,
		"is_approved":    dbutil.BoolToInt(comment.Approved),
		"parent_id":      parentID,
		"ctime":          comment.Ctime,
		"mtime":          comment.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("comments", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *CommentRepo) ListByContent(ctx context.Context, contentID string, approvedOnly bool) ([]model.Comment, error) {
	where := map[string]interface{}{
		"content_id": contentID,
		"_orderby":   "ctime asc",
	}
	if approvedOnly {
		where["is_approved"] = 1
	}
	sqlStr, args, err := builder.BuildSelect("comments", where, commentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Comment, 0)
	for rows.Next() {
		var item model.Comment
		var approved int
		var parentID sql.NullString
		if err := rows.Scan(&item.ID, &item.ContentID, &item.AuthorName, &item.AuthorEmail, &item.AuthorWebsite, &item.Body, &approved, &parentID, &item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		item.Approved = approved == 1
		if parentID.Valid {
			id := parentID.String
			item.ParentID = &id
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *CommentRepo) DeleteByContent(ctx context.Context, contentID string) error {
	sqlStr, args, err := builder.BuildDelete("comments", map[string]interface{}{"content_id": contentID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
