package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect selects the SQL flavour of the backing database
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a driver name to a dialect
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(strings.ToLower(driver)) {
	case Postgres:
		return Postgres, nil
	case MySQL:
		return MySQL, nil
	case SQLite:
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported database driver: %s", driver)
}

// rebind rewrites '?' placeholders into the dialect's bind variables
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// insertIgnore builds an INSERT that skips rows whose unique key already exists.
// Other errors, such as foreign key violations, still fail the statement.
func (d Dialect) insertIgnore(table string, columns []string, conflict []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	if d == MySQL {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE id = id",
			table, strings.Join(columns, ", "), placeholders)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		table, strings.Join(columns, ", "), placeholders, strings.Join(conflict, ", "))
}

// lockingRead returns the clause making a SELECT read the latest committed row.
// InnoDB plain reads see the transaction's snapshot, which misses a row another
// writer committed after it; PostgreSQL and SQLite statements already see it.
func (d Dialect) lockingRead() string {
	if d == MySQL {
		return " LOCK IN SHARE MODE"
	}
	return ""
}

// inIDs builds a membership predicate for an ID set.
// PostgreSQL binds the whole set as one array parameter.
func (d Dialect) inIDs(column string, ids []int64) (string, []interface{}) {
	if d == Postgres {
		return fmt.Sprintf("%s = ANY(?)", column), []interface{}{pq.Array(ids)}
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	return fmt.Sprintf("%s IN (%s)", column, placeholders), args
}
