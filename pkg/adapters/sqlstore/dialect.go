package sqlstore

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	// Name selects the embedded migration directory.
	Name string

	driver      string
	lockClause  string
	isDuplicate func(error) bool
}

var (
	// SQLite runs on the pure-Go modernc.org/sqlite driver.
	SQLite = Dialect{
		Name:        "sqlite",
		driver:      "sqlite",
		isDuplicate: sqliteDuplicate,
	}

	// MySQL runs on github.com/go-sql-driver/mysql. MariaDB works too.
	MySQL = Dialect{
		Name:        "mysql",
		driver:      "mysql",
		lockClause:  " FOR UPDATE",
		isDuplicate: mysqlDuplicate,
	}
)

func sqliteDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// 1062 is ER_DUP_ENTRY.
func mysqlDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
