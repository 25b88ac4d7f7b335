package dbutil

import (
	"errors"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

var bindType atomic.Int32

func init() {
	bindType.Store(int32(sqlx.DOLLAR))
}

// SetDriver selects the placeholder style used by Finalize.
func SetDriver(driverName string) {
	bt := sqlx.BindType(driverName)
	if bt == sqlx.UNKNOWN {
		bt = sqlx.QUESTION
	}
	bindType.Store(int32(bt))
}

func Finalize(query string, args []interface{}) (string, []interface{}) {
	loc := limitRegex.FindStringIndex(query)
	if loc != nil {
		prefix := query[:loc[0]]
		qCount := strings.Count(prefix, "?")
		if qCount+1 < len(args) {
			args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(int(bindType.Load()), query), args
}

func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed")
}

func BoolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
