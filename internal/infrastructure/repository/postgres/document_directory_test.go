package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPolicyIDsByDomain(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT pd.id").
		WithArgs("good-example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)).AddRow(int64(11)))

	ids, err := NewDocumentDirectory(db).PolicyIDsByDomain(context.Background(), "good-example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 10 || ids[1] != 11 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPolicyIDsByDomainNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT pd.id").
		WithArgs("unknown-example.org").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, err := NewDocumentDirectory(db).PolicyIDsByDomain(context.Background(), "unknown-example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no ids, got %v", ids)
	}
}

func TestPolicyIDsByDomainQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT pd.id").
		WithArgs("good-example.com").
		WillReturnError(errors.New("connection reset"))

	if _, err := NewDocumentDirectory(db).PolicyIDsByDomain(context.Background(), "good-example.com"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPolicyByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT pd.id, pd.company_id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "doc_type", "url", "domain"}).
			AddRow(int64(42), int64(7), "privacy", "https://good-example.com/privacy", "good-example.com"))

	ref, err := NewDocumentDirectory(db).PolicyByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref == nil {
		t.Fatalf("expected a ref")
	}
	if ref.ID != 42 || ref.CompanyID != 7 || ref.DocType != "privacy" || ref.Domain != "good-example.com" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestPolicyByIDMissingIsNilNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT pd.id, pd.company_id").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "doc_type", "url", "domain"}))

	ref, err := NewDocumentDirectory(db).PolicyByID(context.Background(), 404)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != nil {
		t.Fatalf("expected nil ref for missing policy, got %+v", ref)
	}
}
