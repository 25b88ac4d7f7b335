package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/curato/internal/model"
	"github.com/xxxsen/curato/internal/pkg/dbutil"
)

type ImportRunRepo struct {
	db *sql.DB
}

func NewImportRunRepo(db *sql.DB) *ImportRunRepo {
	return &ImportRunRepo{db: db}
}

func (r *ImportRunRepo) Create(ctx context.Context, run *model.ImportRun) error {
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":          run.ID,
		"method":      run.Method,
		"total":       run.Total,
		"succeeded":   run.Succeeded,
		"failed":      run.Failed,
		"errors_json": string(errorsJSON),
		"ctime":       run.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("import_runs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ImportRunRepo) ListRecent(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	where := map[string]interface{}{
		"_orderby": "ctime desc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("import_runs", where, []string{"id", "method", "total", "succeeded", "failed", "errors_json", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.ImportRun, 0)
	for rows.Next() {
		var item model.ImportRun
		var errorsJSON string
		if err := rows.Scan(&item.ID, &item.Method, &item.Total, &item.Succeeded, &item.Failed, &errorsJSON, &item.Ctime); err != nil {
			return nil, err
		}
		item.Errors = []string{}
		if errorsJSON != "" {
			_ = json.Unmarshal([]byte(errorsJSON), &item.Errors)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ImportRunRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("import_runs", map[string]interface{}{"ctime <": cutoff})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
