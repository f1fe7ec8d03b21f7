// Package scyllastore implémente les accès de store sur ScyllaDB.
// Les tables *_by_* sont des index dénormalisés écrits avec la table principale.
package scyllastore

import (
	"context"
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"
)

//go:embed schema.cql
var schema string

// ApplySchema crée les tables manquantes.
func ApplySchema(ctx context.Context, session *gocql.Session) error {
	for _, stmt := range schemaStatements(schema) {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("schéma ScyllaDB: %w", err)
		}
	}
	return nil
}

func schemaStatements(src string) []string {
	var out []string
	for _, s := range strings.Split(src, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// statement est une requête CQL en attente, rejouée dans un batch.
type statement struct {
	cql  string
	args []any
}

func execBatch(ctx context.Context, session *gocql.Session, typ gocql.BatchType, stmts []statement) error {
	b := session.NewBatch(typ).WithContext(ctx)
	for _, s := range stmts {
		b.Query(s.cql, s.args...)
	}
	return session.ExecuteBatch(b)
}

func toCQLUUID(id uuid.UUID) gocql.UUID {
	return gocql.UUID(id)
}

func fromCQLUUID(id gocql.UUID) uuid.UUID {
	return uuid.UUID(id)
}

// toInfDec convertit vers le type attendu par gocql pour les colonnes decimal.
func toInfDec(d decimal.Decimal) *inf.Dec {
	dec := new(inf.Dec).SetUnscaledBig(d.Coefficient())
	return dec.SetScale(inf.Scale(-d.Exponent()))
}

func fromInfDec(d *inf.Dec) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(d.UnscaledBig()), -int32(d.Scale()))
}
