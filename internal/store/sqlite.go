package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// DSN builds the connection string for a database file.
func DSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", "5000")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Open opens the database file at path and applies pending migrations.
func Open(path string) (*SQLiteStore, error) {
	return NewSQLiteStore(DSN(path))
}

// OpenDB opens the database without migrating it, for the migrate command.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: in-memory databases are per connection, and a single
	// writer means the driver serializes every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if _, err := NewMigrator(db).Up(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := s.seedDoctors(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed doctors: %w", err)
	}

	return s, nil
}

// Ping checks that the database answers.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return NewMigrator(s.db).Version(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var defaultDoctors = []domain.Doctor{
	{
		Name:           "Dr. Sarah Johnson",
		Specialization: "General Medicine",
		Department:     "OPD",
		Email:          "sarah.johnson@hospital.com",
		Bio:            "Experienced general practitioner with over 15 years of experience in primary care and preventive medicine.",
		ImageURL:       "images/doc1.jpg",
	},
	{
		Name:           "Dr. Michael Chen",
		Specialization: "Cardiology",
		Department:     "OPD",
		Email:          "michael.chen@hospital.com",
		Bio:            "Board-certified cardiologist specializing in heart disease prevention and treatment.",
		ImageURL:       "images/doc2.jpg",
	},
	{
		Name:           "Dr. Emily Rodriguez",
		Specialization: "Pediatrics",
		Department:     "Maternity",
		Email:          "emily.rodriguez@hospital.com",
		Bio:            "Dedicated pediatrician with expertise in child health and development.",
		ImageURL:       "images/doc3.jpg",
	},
	{
		Name:           "Dr. James Wilson",
		Specialization: "Emergency Medicine",
		Department:     "Emergency",
		Email:          "james.wilson@hospital.com",
		Bio:            "Emergency medicine specialist providing critical care services 24/7.",
		ImageURL:       "images/doc4.jpg",
	},
	{
		Name:           "Dr. Lisa Anderson",
		Specialization: "Surgery",
		Department:     "Surgery",
		Email:          "lisa.anderson@hospital.com",
		Bio:            "Skilled surgeon with expertise in general and minimally invasive procedures.",
		ImageURL:       "images/doc5.jpg",
	},
	{
		Name:           "Dr. Robert Brown",
		Specialization: "Pathology",
		Department:     "Laboratory",
		Email:          "robert.brown@hospital.com",
		Bio:            "Pathologist specializing in diagnostic testing and laboratory medicine.",
		ImageURL:       "images/doc6.jpg",
	},
}

// seedDoctors fills an empty directory with the default doctors.
func (s *SQLiteStore) seedDoctors(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, d := range defaultDoctors {
		doctor := d
		if err := s.CreateDoctor(ctx, &doctor); err != nil {
			return err
		}
	}
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
