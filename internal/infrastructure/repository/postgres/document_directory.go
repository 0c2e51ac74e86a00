package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/akorchagin/policy-rag/internal/core/domain"
)

// DocumentDirectory reads the companies / policy_discovery tables written
// by the ingestion side. This pipeline never mutates them.
type DocumentDirectory struct {
	db *sql.DB
}

func NewDocumentDirectory(db *sql.DB) *DocumentDirectory {
	return &DocumentDirectory{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (d *DocumentDirectory) PolicyIDsByDomain(ctx context.Context, domainName string) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx, `
SELECT pd.id
FROM policy_discovery pd
JOIN companies c ON c.id = pd.company_id
WHERE c.domain = $1
`, domainName)
	if err != nil {
		return nil, fmt.Errorf("query policy ids by domain: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan policy id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policy ids: %w", err)
	}
	return ids, nil
}

func (d *DocumentDirectory) PolicyByID(ctx context.Context, policyID int64) (*domain.PolicyRef, error) {
	row := d.db.QueryRowContext(ctx, `
SELECT pd.id, pd.company_id, pd.doc_type, pd.url, c.domain
FROM policy_discovery pd
JOIN companies c ON c.id = pd.company_id
WHERE pd.id = $1
`, policyID)

	var ref domain.PolicyRef
	err := row.Scan(&ref.ID, &ref.CompanyID, &ref.DocType, &ref.URL, &ref.Domain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan policy ref: %w", err)
	}
	return &ref, nil
}
