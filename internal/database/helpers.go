package database

import "database/sql"

// execRequireRows validates that an ExecContext result touched at least one
// row, returning notFoundErr otherwise.
func execRequireRows(result sql.Result, err, notFoundErr error) error {
	if err != nil {
		return err
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return affectedErr
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}
