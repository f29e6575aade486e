package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pairmesh/backend/internal/db"
	"github.com/pairmesh/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, display_name, avatar_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.Password, user.DisplayName, user.AvatarURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a non-deleted user by email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, display_name, avatar_url, created_at, updated_at, deleted_at
        FROM users
        WHERE email = $1 AND deleted_at IS NULL
    `, email)

	return scanUser(row)
}

// FindByID fetches a non-deleted user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, display_name, avatar_url, created_at, updated_at, deleted_at
        FROM users
        WHERE id = $1 AND deleted_at IS NULL
    `, id)

	return scanUser(row)
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, password_hash = $3, display_name = $4, avatar_url = $5, updated_at = $6
        WHERE id = $1 AND deleted_at IS NULL
    `, user.ID, user.Email, user.Password, user.DisplayName, user.AvatarURL, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.DisplayName, &user.AvatarURL,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// PostgresRelationshipRepository provides PostgreSQL-backed persistence for
// pairwise relationships. Rows are keyed by id with a uniqueness constraint
// over the canonical (user_a, user_b) pair.
type PostgresRelationshipRepository struct {
	pool db.Pool
}

// NewPostgresRelationshipRepository constructs a relationship repository backed by PostgreSQL.
func NewPostgresRelationshipRepository(pool db.Pool) *PostgresRelationshipRepository {
	return &PostgresRelationshipRepository{pool: pool}
}

const relationshipColumns = "id, user_a, user_b, status, blocked_at, conversation_id, created_at, updated_at"

// Create inserts a relationship row. When a row for the same canonical pair
// already exists it is reclaimed only if its status is away; the reclaimed
// row keeps its original id and created_at. Any other conflict surfaces as
// ErrConflict. The uniqueness index is the final arbiter, so two concurrent
// creations for the same pair resolve here rather than in application logic.
func (r *PostgresRelationshipRepository) Create(ctx context.Context, rel models.Relationship) (models.Relationship, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Relationship{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO relationships (id, user_a, user_b, status, blocked_at, conversation_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NULL, NULL, $5, $6)
        ON CONFLICT (user_a, user_b) DO UPDATE
        SET status = EXCLUDED.status,
            blocked_at = NULL,
            conversation_id = NULL,
            updated_at = EXCLUDED.updated_at
        WHERE relationships.status = $7
        RETURNING `+relationshipColumns+`
    `, rel.ID, rel.UserA, rel.UserB, rel.Status, rel.CreatedAt, rel.UpdatedAt, models.StatusAway)

	created, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The conflicting row was not in the away state.
			return models.Relationship{}, ErrConflict
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Relationship{}, ErrConflict
		}
		return models.Relationship{}, fmt.Errorf("insert relationship: %w", err)
	}

	return created, nil
}

// FindByID fetches a relationship by identifier.
func (r *PostgresRelationshipRepository) FindByID(ctx context.Context, id string) (models.Relationship, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Relationship{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+relationshipColumns+`
        FROM relationships
        WHERE id = $1
    `, id)

	return scanRelationship(row)
}

// FindByUserPair fetches the relationship for an unordered user pair,
// canonicalizing the argument order before lookup.
func (r *PostgresRelationshipRepository) FindByUserPair(ctx context.Context, userA, userB string) (models.Relationship, error) {
	lo, hi := models.CanonicalPair(userA, userB)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Relationship{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+relationshipColumns+`
        FROM relationships
        WHERE user_a = $1 AND user_b = $2
    `, lo, hi)

	return scanRelationship(row)
}

// Update applies a partial update and returns the updated record.
func (r *PostgresRelationshipRepository) Update(ctx context.Context, id string, patch RelationshipPatch) (models.Relationship, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Relationship{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	set := []string{"updated_at = NOW()"}
	args := []any{id}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.BlockedAt != nil {
		args = append(args, *patch.BlockedAt)
		set = append(set, fmt.Sprintf("blocked_at = $%d", len(args)))
	}
	if patch.ConversationID != nil {
		args = append(args, *patch.ConversationID)
		set = append(set, fmt.Sprintf("conversation_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`
        UPDATE relationships
        SET %s
        WHERE id = $1
        RETURNING %s
    `, strings.Join(set, ", "), relationshipColumns)

	row := conn.QueryRow(ctx, query, args...)
	updated, err := scanRelationship(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Relationship{}, ErrNotFound
		}
		return models.Relationship{}, fmt.Errorf("update relationship: %w", err)
	}

	return updated, nil
}

var relationshipSortFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
}

// ListForUser returns unblocked relationships where the user occupies either
// slot, filtered by status when provided, sorted and paginated.
func (r *PostgresRelationshipRepository) ListForUser(ctx context.Context, userID string, params RelationshipListParams) ([]models.Relationship, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	where := "(user_a = $1 OR user_b = $1) AND blocked_at IS NULL"
	args := []any{userID}

	if params.Status != "" {
		args = append(args, params.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var count int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM relationships WHERE "+where, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count relationships: %w", err)
	}

	sortField, ok := relationshipSortFields[params.SortField]
	if !ok {
		sortField = "updated_at"
	}
	sortDir := "DESC"
	if strings.EqualFold(params.SortDir, "asc") {
		sortDir = "ASC"
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	size := params.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf(`
        SELECT %s
        FROM relationships
        WHERE %s
        ORDER BY %s %s
        LIMIT $%d OFFSET $%d
    `, relationshipColumns, where, sortField, sortDir, len(args)-1, len(args))

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query relationships: %w", err)
	}
	defer rows.Close()

	var rels []models.Relationship
	for rows.Next() {
		var rel models.Relationship
		if err := rows.Scan(&rel.ID, &rel.UserA, &rel.UserB, &rel.Status, &rel.BlockedAt,
			&rel.ConversationID, &rel.CreatedAt, &rel.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan relationship: %w", err)
		}
		rels = append(rels, rel)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate relationships: %w", err)
	}

	return rels, count, nil
}

func scanRelationship(row pgx.Row) (models.Relationship, error) {
	var rel models.Relationship
	if err := row.Scan(&rel.ID, &rel.UserA, &rel.UserB, &rel.Status, &rel.BlockedAt,
		&rel.ConversationID, &rel.CreatedAt, &rel.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Relationship{}, ErrNotFound
		}
		return models.Relationship{}, err
	}
	return rel, nil
}

// PostgresConversationRepository provides PostgreSQL-backed persistence for conversations.
type PostgresConversationRepository struct {
	pool db.Pool
}

// NewPostgresConversationRepository constructs a conversation repository backed by PostgreSQL.
func NewPostgresConversationRepository(pool db.Pool) *PostgresConversationRepository {
	return &PostgresConversationRepository{pool: pool}
}

// Create persists a new conversation.
func (r *PostgresConversationRepository) Create(ctx context.Context, conversation models.Conversation) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO conversations (id, kind, name, description, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, conversation.ID, conversation.Kind, conversation.Name, conversation.Description,
		conversation.CreatedBy, conversation.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert conversation: %w", err)
	}

	return nil
}

// FindByID fetches a conversation by identifier.
func (r *PostgresConversationRepository) FindByID(ctx context.Context, id string) (models.Conversation, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, kind, name, description, created_by, created_at
        FROM conversations
        WHERE id = $1
    `, id)

	var conversation models.Conversation
	if err := row.Scan(&conversation.ID, &conversation.Kind, &conversation.Name,
		&conversation.Description, &conversation.CreatedBy, &conversation.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Conversation{}, ErrNotFound
		}
		return models.Conversation{}, fmt.Errorf("select conversation: %w", err)
	}

	return conversation, nil
}

// PostgresMembershipRepository provides PostgreSQL-backed persistence for memberships.
type PostgresMembershipRepository struct {
	pool db.Pool
}

// NewPostgresMembershipRepository constructs a membership repository backed by PostgreSQL.
func NewPostgresMembershipRepository(pool db.Pool) *PostgresMembershipRepository {
	return &PostgresMembershipRepository{pool: pool}
}

// Create persists a new membership.
func (r *PostgresMembershipRepository) Create(ctx context.Context, membership models.Membership) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO memberships (id, conversation_id, user_id, role, joined_at)
        VALUES ($1, $2, $3, $4, $5)
    `, membership.ID, membership.ConversationID, membership.UserID, membership.Role, membership.JoinedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert membership: %w", err)
	}

	return nil
}

// ListForConversation returns the memberships of a conversation.
func (r *PostgresMembershipRepository) ListForConversation(ctx context.Context, conversationID string) ([]models.Membership, error) {
	return r.list(ctx, "conversation_id", conversationID)
}

// ListForUser returns the memberships a user holds across conversations.
func (r *PostgresMembershipRepository) ListForUser(ctx context.Context, userID string) ([]models.Membership, error) {
	return r.list(ctx, "user_id", userID)
}

func (r *PostgresMembershipRepository) list(ctx context.Context, column, value string) ([]models.Membership, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT id, conversation_id, user_id, role, joined_at
        FROM memberships
        WHERE %s = $1
        ORDER BY joined_at ASC
    `, column), value)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

// PostgresMediaRepository provides PostgreSQL-backed persistence for media uploads.
type PostgresMediaRepository struct {
	pool db.Pool
}

// NewPostgresMediaRepository constructs a media repository backed by PostgreSQL.
func NewPostgresMediaRepository(pool db.Pool) *PostgresMediaRepository {
	return &PostgresMediaRepository{pool: pool}
}

// Create stores a new media upload record.
func (r *PostgresMediaRepository) Create(ctx context.Context, upload models.MediaUpload) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := upload.Status
	if strings.TrimSpace(status) == "" {
		status = models.MediaStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO media_uploads (id, owner_id, file_name, content_type, size, status, location, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, upload.ID, upload.OwnerID, upload.FileName, upload.ContentType, upload.Size, status,
		upload.Location, upload.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert media upload: %w", err)
	}

	return nil
}

// FindByID fetches a media upload by identifier.
func (r *PostgresMediaRepository) FindByID(ctx context.Context, id string) (models.MediaUpload, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.MediaUpload{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, file_name, content_type, size, status, location, created_at
        FROM media_uploads
        WHERE id = $1
    `, id)

	var upload models.MediaUpload
	if err := row.Scan(&upload.ID, &upload.OwnerID, &upload.FileName, &upload.ContentType,
		&upload.Size, &upload.Status, &upload.Location, &upload.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MediaUpload{}, ErrNotFound
		}
		return models.MediaUpload{}, fmt.Errorf("select media upload: %w", err)
	}

	return upload, nil
}

// ListForOwner returns the uploads owned by a user, newest first.
func (r *PostgresMediaRepository) ListForOwner(ctx context.Context, ownerID string) ([]models.MediaUpload, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, file_name, content_type, size, status, location, created_at
        FROM media_uploads
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query media uploads: %w", err)
	}
	defer rows.Close()

	var uploads []models.MediaUpload
	for rows.Next() {
		var upload models.MediaUpload
		if err := rows.Scan(&upload.ID, &upload.OwnerID, &upload.FileName, &upload.ContentType,
			&upload.Size, &upload.Status, &upload.Location, &upload.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media upload: %w", err)
		}
		uploads = append(uploads, upload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media uploads: %w", err)
	}

	return uploads, nil
}

// MarkReady updates an upload's metadata after a successful transfer.
func (r *PostgresMediaRepository) MarkReady(ctx context.Context, id, location string, size int64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE media_uploads
        SET status = $2, location = $3, size = $4
        WHERE id = $1
    `, id, models.MediaStatusReady, location, size)
	if err != nil {
		return fmt.Errorf("update media upload ready: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkFailed records a failed transfer attempt for the upload.
func (r *PostgresMediaRepository) MarkFailed(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE media_uploads
        SET status = $2, location = ''
        WHERE id = $1
    `, id, models.MediaStatusFailed)
	if err != nil {
		return fmt.Errorf("update media upload failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ RelationshipRepository = (*PostgresRelationshipRepository)(nil)
var _ ConversationRepository = (*PostgresConversationRepository)(nil)
var _ MembershipRepository = (*PostgresMembershipRepository)(nil)
var _ MediaRepository = (*PostgresMediaRepository)(nil)
