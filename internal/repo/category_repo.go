package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/curato/internal/model"
	"github.com/xxxsen/curato/internal/pkg/dbutil"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
)

var categoryFields = []string{"id", "name", "slug", "description", "color", "icon", "is_active", "sort_order", "ctime", "mtime"}

type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, category *model.Category) error {
	data := map[string]interface{}{
		"id":          category.ID,
		"name":        category.Name,
		"slug":        category.Slug,
		"description": category.Description,
		"color":       category.Color,
		"icon":        category.Icon,
		"is_active":   dbutil.BoolToInt(category.Active),
		"sort_order":  category.SortOrder,
		"ctime":       category.Ctime,
		"mtime":       category.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("categories", []map[string]interface{}{data})
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

func (r *CategoryRepo) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	where := map[string]interface{}{"_orderby": "sort_order desc, name asc"}
	if activeOnly {
		where["is_active"] = 1
	}
	return r.query(ctx, where)
}

func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	items, err := r.query(ctx, map[string]interface{}{"slug": slug})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*model.Category, error) {
	items, err := r.query(ctx, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *CategoryRepo) query(ctx context.Context, where map[string]interface{}) ([]model.Category, error) {
	sqlStr, args, err := builder.BuildSelect("categories", where, categoryFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Category, 0)
	for rows.Next() {
		var item model.Category
		var active int
		if err := rows.Scan(&item.ID, &item.Name, &item.Slug, &item.Description, &item.Color, &item.Icon, &active, &item.SortOrder, &item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		item.Active = active == 1
		items = append(items, item)
	}
	return items, rows.Err()
}
