// Package sqlstore implémente les accès de store sur database/sql.
// Les requêtes utilisent des paramètres $N, compris par sqlite (modernc) et postgres.
package sqlstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

type scanner interface {
	Scan(dest ...any) error
}

// isUniqueViolation reconnaît une violation d'unicité pour les deux dialectes.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
