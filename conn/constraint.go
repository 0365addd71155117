package conn

import (
	"errors"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
)

// translateError maps driver-specific constraint violations into the shared
// taxonomy. Non-constraint errors pass through untouched; retry policy stays
// with the caller.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := postgresConstraintKind(pgErr.Code); ok {
			return &ConstraintError{Kind: kind, Constraint: pgErr.ConstraintName, cause: err}
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if kind, ok := mysqlConstraintKind(myErr.Number); ok {
			return &ConstraintError{Kind: kind, Constraint: mysqlConstraintName(myErr.Message), cause: err}
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if kind, ok := sqliteConstraintKind(liteErr.Code()); ok {
			return &ConstraintError{Kind: kind, cause: err}
		}
		return err
	}

	return err
}

// postgresConstraintKind maps SQLSTATE class 23 codes.
func postgresConstraintKind(code string) (ConstraintKind, bool) {
	switch code {
	case "23505":
		return ConstraintUnique, true
	case "23503":
		return ConstraintForeignKey, true
	case "23514":
		return ConstraintCheck, true
	case "23P01":
		return ConstraintExclusion, true
	}
	return "", false
}

// mysqlConstraintKind maps server error numbers.
func mysqlConstraintKind(number uint16) (ConstraintKind, bool) {
	switch number {
	case 1062, 1169: // ER_DUP_ENTRY, ER_DUP_UNIQUE
		return ConstraintUnique, true
	case 1216, 1217, 1451, 1452: // no referenced row / row is referenced
		return ConstraintForeignKey, true
	case 3819: // ER_CHECK_CONSTRAINT_VIOLATED
		return ConstraintCheck, true
	}
	return "", false
}

// constraintNameRe pulls the quoted constraint name out of the server
// message; MySQL has no structured field for it. Names appear either
// single-quoted (duplicate keys) or backtick-quoted (foreign keys).
var constraintNameRe = regexp.MustCompile("(?:for key|CONSTRAINT) ['`]([^'`]+)['`]")

func mysqlConstraintName(msg string) string {
	m := constraintNameRe.FindStringSubmatch(msg)
	if m == nil {
		return ""
	}
	return m[1]
}

// sqliteConstraintKind maps extended result codes.
func sqliteConstraintKind(code int) (ConstraintKind, bool) {
	switch code {
	case 1555, 2067: // SQLITE_CONSTRAINT_PRIMARYKEY, SQLITE_CONSTRAINT_UNIQUE
		return ConstraintUnique, true
	case 787: // SQLITE_CONSTRAINT_FOREIGNKEY
		return ConstraintForeignKey, true
	case 275: // SQLITE_CONSTRAINT_CHECK
		return ConstraintCheck, true
	}
	return "", false
}
