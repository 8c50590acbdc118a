package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStorage_SetTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	s := NewStorage(db, "default")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO client_session").
		WithArgs("default", "access_token", "a1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO client_session").
		WithArgs("default", "refresh_token", "r1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := s.SetTokens(context.Background(), "a1", "r1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_SetTokensRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	s := NewStorage(db, "default")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO client_session").
		WithArgs("default", "access_token", "a1").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := s.SetTokens(context.Background(), "a1", "r1"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStorage_AccessToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	s := NewStorage(db, "default")

	rows := sqlmock.NewRows([]string{"value"}).AddRow("a1")
	mock.ExpectQuery("SELECT value FROM client_session").
		WithArgs("default", "access_token").
		WillReturnRows(rows)

	tok, err := s.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken failed: %v", err)
	}
	if tok != "a1" {
		t.Errorf("expected a1, got %q", tok)
	}
}

func TestStorage_RefreshTokenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	s := NewStorage(db, "default")

	mock.ExpectQuery("SELECT value FROM client_session").
		WithArgs("default", "refresh_token").
		WillReturnError(sql.ErrNoRows)

	tok, err := s.RefreshToken(context.Background())
	if err != nil {
		t.Fatalf("missing row should not be an error: %v", err)
	}
	if tok != "" {
		t.Errorf("expected empty token, got %q", tok)
	}
}

func TestStorage_Clear(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	defer db.Close()

	s := NewStorage(db, "default")

	mock.ExpectExec("DELETE FROM client_session").
		WithArgs("default").
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
