package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/salescube-io/salescube/internal/config"
)

const (
	keyCreated = "created"
	keyUpdated = "updated"
	keyDeleted = "deleted"
)

var _ APIKeyStore = (*PersistentKeyStore)(nil)

// PersistentKeyStore implements APIKeyStore with a PostgreSQL backend.
// Keys are stored as bcrypt hashes, never in plaintext, and every
// mutation writes an audit log entry.
type PersistentKeyStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPersistentKeyStore creates a PostgreSQL-backed key store.
func NewPersistentKeyStore(conn *Connection) (*PersistentKeyStore, error) {
	if conn == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &PersistentKeyStore{
		conn: conn,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelDebug),
		})),
	}, nil
}

// FindByKey retrieves an API key by its key value using bcrypt hash
// comparison. All active keys are scanned and compared in memory, which
// holds up fine for the small key populations this service manages.
func (s *PersistentKeyStore) FindByKey(ctx context.Context, key string) (*Key, bool) {
	if key == "" {
		return nil, false
	}

	query := `
		SELECT id, key_hash, client_id, name, permissions, created_at, expires_at, active
		FROM api_keys
		WHERE active = TRUE
	`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, false
	}

	defer func() {
		_ = rows.Close()
	}()

	var keyFound *Key

	for rows.Next() {
		var (
			apiKey          Key
			permissionsJSON []byte
		)

		err := rows.Scan(
			&apiKey.ID,
			&apiKey.Key, // the bcrypt hash, used only for comparison
			&apiKey.ClientID,
			&apiKey.Name,
			&permissionsJSON,
			&apiKey.CreatedAt,
			&apiKey.ExpiresAt,
			&apiKey.Active,
		)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(permissionsJSON, &apiKey.Permissions); err != nil {
			continue
		}

		if CompareAPIKeyHash(apiKey.Key, key) {
			// Never hand back the hash.
			apiKey.Key = MaskKey(apiKey.Key)
			keyFound = &apiKey

			break
		}
	}

	if err := rows.Err(); err != nil {
		s.logger.Error("failed to find key", slog.String("error", err.Error()))

		return nil, false
	}

	return keyFound, keyFound != nil
}

// Add stores a new API key, hashed with bcrypt before it hits the
// database. Duplicate detection scans active keys because bcrypt
// produces a different hash for the same input every time.
func (s *PersistentKeyStore) Add(ctx context.Context, apiKey *Key) error {
	if apiKey == nil { // pragma: allowlist secret
		return ErrKeyNil
	}

	if existing, found := s.FindByKey(ctx, apiKey.Key); found && existing != nil {
		return ErrKeyAlreadyExists
	}

	keyHash, err := HashAPIKey(apiKey.Key)
	if err != nil {
		return fmt.Errorf("failed to hash API key: %w", err)
	}

	permissionsJSON, err := permissionsToJSON(apiKey.Permissions)
	if err != nil {
		return fmt.Errorf("failed to serialize permissions: %w", err)
	}

	query := `
		INSERT INTO api_keys (id, key_hash, client_id, name, permissions, created_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.conn.ExecContext(
		ctx,
		query,
		apiKey.ID,
		keyHash,
		apiKey.ClientID,
		apiKey.Name,
		permissionsJSON,
		apiKey.CreatedAt,
		apiKey.ExpiresAt,
		apiKey.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert API key: %w", err)
	}

	s.auditBestEffort(ctx, keyCreated, apiKey)

	return nil
}

// Update modifies name, permissions, active status and expiration of an
// existing key. The key hash itself is immutable.
func (s *PersistentKeyStore) Update(ctx context.Context, apiKey *Key) error {
	if apiKey == nil { // pragma: allowlist secret
		return ErrKeyNil
	}

	if apiKey.ID == "" {
		return ErrKeyNotFound
	}

	permissionsJSON, err := permissionsToJSON(apiKey.Permissions)
	if err != nil {
		return fmt.Errorf("failed to serialize permissions: %w", err)
	}

	query := `
		UPDATE api_keys
		SET name = $1, permissions = $2, active = $3, expires_at = $4
		WHERE id = $5
	`

	result, err := s.conn.ExecContext(
		ctx, query, apiKey.Name, permissionsJSON, apiKey.Active, apiKey.ExpiresAt, apiKey.ID)
	if err != nil {
		return fmt.Errorf("failed to update API key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrKeyNotFound
	}

	s.auditBestEffort(ctx, keyUpdated, apiKey)

	return nil
}

// Delete soft-deletes an API key by setting active=FALSE. The row stays
// behind for the audit trail.
func (s *PersistentKeyStore) Delete(ctx context.Context, keyID string) error {
	if keyID == "" {
		return ErrKeyNotFound
	}

	result, err := s.conn.ExecContext(ctx,
		"UPDATE api_keys SET active = FALSE WHERE id = $1", keyID)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrKeyNotFound
	}

	s.auditBestEffort(ctx, keyDeleted, &Key{ID: keyID})

	return nil
}

// ListByClient returns all active API keys for a specific client.
func (s *PersistentKeyStore) ListByClient(ctx context.Context, clientID string) ([]*Key, error) {
	if clientID == "" {
		return nil, ErrClientIDEmpty
	}

	query := `
		SELECT id, key_hash, client_id, name, permissions, created_at, expires_at, active
		FROM api_keys
		WHERE client_id = $1 AND active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := s.conn.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query API keys: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var keys []*Key

	for rows.Next() {
		var (
			apiKey          Key
			permissionsJSON []byte
		)

		err := rows.Scan(
			&apiKey.ID,
			&apiKey.Key,
			&apiKey.ClientID,
			&apiKey.Name,
			&permissionsJSON,
			&apiKey.CreatedAt,
			&apiKey.ExpiresAt,
			&apiKey.Active,
		)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(permissionsJSON, &apiKey.Permissions); err != nil {
			continue
		}

		apiKey.Key = MaskKey(apiKey.Key)

		keys = append(keys, &apiKey)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if keys == nil {
		keys = []*Key{}
	}

	return keys, nil
}

// permissionsToJSON converts a permissions slice to JSON for JSONB storage.
func permissionsToJSON(permissions []string) ([]byte, error) {
	if permissions == nil {
		permissions = []string{}
	}

	return json.Marshal(permissions)
}

// auditBestEffort writes an audit log entry; failures are logged but do
// not fail the key operation.
func (s *PersistentKeyStore) auditBestEffort(ctx context.Context, operation string, apiKey *Key) {
	query := `
		INSERT INTO api_key_audit_log (api_key_id, operation, masked_key, client_id)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.conn.ExecContext(ctx, query, apiKey.ID, operation, MaskKey(apiKey.Key), apiKey.ClientID)
	if err != nil {
		s.logger.Error("failed to write an audit log entry for API key operation",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	}
}
