// Package store provides the Data Access Layer (Repository) for raw
// profile-policy configuration documents, keyed by realm. It handles all
// direct interactions with PostgreSQL using the pgx driver.
//
// The store only transports serialized documents; parsing and semantic
// validation happen in the policy/compiler packages at the point of use.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a realm has no stored configuration.
var ErrNotFound = errors.New("profile configuration not found")

// Compile-time check to verify that PostgresStore implements ConfigRepository.
var _ ConfigRepository = (*PostgresStore)(nil)

// ProfileConfig is the stored configuration row for one realm.
type ProfileConfig struct {
	Realm     string    `db:"realm"`
	Document  string    `db:"document"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ConfigRepository defines the persistence operations for raw configuration
// documents. Using an interface allows dependency injection and an
// in-memory implementation for tests.
type ConfigRepository interface {
	// GetConfig retrieves the stored configuration for a realm.
	// Returns ErrNotFound when the realm has none.
	GetConfig(ctx context.Context, realm string) (*ProfileConfig, error)

	// SetConfig stores the configuration document for a realm, creating the
	// row or bumping its version. A nil document deletes the row (the realm
	// reverts to the built-in default configuration).
	SetConfig(ctx context.Context, realm string, document *string) error

	// ListVersions returns the stored version per realm. Used by the
	// watcher to detect configuration changes this replica missed.
	ListVersions(ctx context.Context) (map[string]int64, error)
}

// PostgresStore is the ConfigRepository implementation backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given
// connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}

// GetConfig fetches the configuration row for a realm.
func (s *PostgresStore) GetConfig(ctx context.Context, realm string) (*ProfileConfig, error) {
	query := `
		SELECT realm, document, version, created_at, updated_at
		FROM profile_configs
		WHERE realm = $1
	`

	var pc ProfileConfig
	err := s.db.QueryRow(ctx, query, realm).Scan(
		&pc.Realm,
		&pc.Document,
		&pc.Version,
		&pc.CreatedAt,
		&pc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile config for realm %q: %w", realm, err)
	}

	return &pc, nil
}

// SetConfig upserts or deletes the configuration row for a realm.
// The version column increases monotonically on every write so watchers can
// detect changes without comparing documents.
func (s *PostgresStore) SetConfig(ctx context.Context, realm string, document *string) error {
	if document == nil {
		if _, err := s.db.Exec(ctx, `DELETE FROM profile_configs WHERE realm = $1`, realm); err != nil {
			return fmt.Errorf("failed to delete profile config for realm %q: %w", realm, err)
		}
		return nil
	}

	query := `
		INSERT INTO profile_configs (realm, document)
		VALUES ($1, $2)
		ON CONFLICT (realm) DO UPDATE
		SET document = EXCLUDED.document,
		    version = profile_configs.version + 1,
		    updated_at = now()
	`

	if _, err := s.db.Exec(ctx, query, realm, *document); err != nil {
		return fmt.Errorf("failed to store profile config for realm %q: %w", realm, err)
	}

	return nil
}

// ListVersions returns the version of every stored configuration.
func (s *PostgresStore) ListVersions(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT realm, version FROM profile_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile config versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]int64)
	for rows.Next() {
		var realm string
		var version int64
		if err := rows.Scan(&realm, &version); err != nil {
			return nil, fmt.Errorf("failed to scan profile config version: %w", err)
		}
		versions[realm] = version
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile config versions: %w", err)
	}

	return versions, nil
}
