package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSQLOperation(t *testing.T) {
	tests := []struct {
		sql   string
		op    string
		table string
	}{
		{`SELECT * FROM "posts" WHERE "posts"."id" = $1`, "select", "posts"},
		{`SELECT count(*) FROM "follows" WHERE user_id = 1`, "select", "follows"},
		{`INSERT INTO "comments" ("text") VALUES ($1)`, "insert", "comments"},
		{`UPDATE "posts" SET "text"=$1`, "update", "posts"},
		{`DELETE FROM follows WHERE id = 3`, "delete", "follows"},
		{`CREATE TABLE x (id int)`, "other", "unknown"},
		{"", "unknown", "unknown"},
	}
	for _, tt := range tests {
		op, table := sqlOperation(tt.sql)
		assert.Equal(t, tt.op, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}

func TestObserveQuery_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DatabaseErrors.WithLabelValues("delete"))
	ObserveQuery(`DELETE FROM "posts" WHERE id = 1`, time.Millisecond, errors.New("boom"))
	ObserveQuery(`DELETE FROM "posts" WHERE id = 2`, time.Millisecond, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(DatabaseErrors.WithLabelValues("delete")))
}
