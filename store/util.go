package store

import "database/sql"

// isAffected reports whether an exec result touched at least one row. A
// driver that cannot report rows affected is treated as having succeeded.
func isAffected(res sql.Result) bool {
	rows, err := res.RowsAffected()
	if err != nil {
		return true
	}
	return rows != 0
}

// getAffected returns the number of rows an exec result touched, or -1 if
// the driver cannot report it.
func getAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return -1
	}
	return n
}
