package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blogdesk/internal/models"
	"blogdesk/internal/query"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `u.id, u.email, u.password_hash, u.display_name, u.is_active,
	u.totp_secret, u.totp_enabled, u.created_at, u.updated_at`

func scanUser(scanner rowScanner) (*models.User, error) {
	var u models.User
	err := scanner.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.IsActive,
		&u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Roles = []models.Role{}
	return &u, nil
}

// FindByEmail retrieves a user by their email address (case-insensitive).
// Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "find user by email",
		`SELECT `+userColumns+` FROM users u WHERE LOWER(u.email) = $1`, normalizeEmail(email))
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "find user by id",
		`SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

func (s *UserStore) findOne(ctx context.Context, op, q string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users := []models.User{*u}
	if err := s.attachRoles(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func userFilter(q query.UserQuery) *filter {
	f := &filter{}
	if q.Search != "" {
		f.add("(u.email ILIKE ? OR u.display_name ILIKE ?)", q.SearchPattern(), q.SearchPattern())
	}
	if q.Role != "" {
		f.add(`EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = u.id AND r.name = ?)`, q.Role)
	}
	return f
}

// List returns one page of users matching q and the total match count.
func (s *UserStore) List(ctx context.Context, q query.UserQuery) ([]models.User, int, error) {
	f := userFilter(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	sqlText := `SELECT ` + userColumns + ` FROM users u` + f.where() +
		` ORDER BY ` + q.OrderClause() + `, u.id` +
		` LIMIT ` + f.next(q.PageSize) + ` OFFSET ` + f.next(q.Offset())
	rows, err := s.db.QueryContext(ctx, sqlText, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	if err := s.attachRoles(ctx, users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ListByRole returns every active user holding the named role.
func (s *UserStore) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	users, _, err := s.List(ctx, query.UserQuery{
		Params: query.Params{Page: 1, PageSize: 1000, OrderBy: "u.email", OrderDir: "asc"},
		Role:   role,
	})
	if err != nil {
		return nil, err
	}
	active := users[:0]
	for _, u := range users {
		if u.IsActive {
			active = append(active, u)
		}
	}
	return active, nil
}

// attachRoles loads the roles of every user in one query.
func (s *UserStore) attachRoles(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	index := make(map[uuid.UUID]int, len(users))
	for i, u := range users {
		ids[i] = u.ID.String()
		index[u.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ur.user_id, r.id, r.name, r.description, r.created_at, r.updated_at
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ANY($1::uuid[])
		ORDER BY r.name
	`, ids)
	if err != nil {
		return fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID uuid.UUID
		var r models.Role
		if err := rows.Scan(&userID, &r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return fmt.Errorf("scan user role: %w", err)
		}
		if i, ok := index[userID]; ok {
			users[i].Roles = append(users[i].Roles, r)
		}
	}
	return rows.Err()
}

// CreateUserParams holds the fields for a new user.
type CreateUserParams struct {
	Email       string
	Password    string
	DisplayName string
	IsActive    bool
	RoleIDs     []uuid.UUID
}

// Create inserts a new user with a bcrypt-hashed password and assigns
// the given roles in the same transaction.
func (s *UserStore) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, display_name, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, normalizeEmail(p.Email), string(hash), p.DisplayName, p.IsActive).Scan(&id)
	if err != nil {
		return nil, translate("create user", err, ErrInvalidReference)
	}
	if err := replaceRoles(ctx, tx, id, p.RoleIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit user: %w", err)
	}
	return s.FindByID(ctx, id)
}

// UpdateUserParams holds the editable user fields. A nil Password keeps
// the current hash.
type UpdateUserParams struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	IsActive    bool
	Password    *string
}

// Update modifies a user's profile fields. Returns nil if the user does
// not exist.
func (s *UserStore) Update(ctx context.Context, p UpdateUserParams) (*models.User, error) {
	var hash sql.NullString
	if p.Password != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = sql.NullString{String: string(h), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			email = $1, display_name = $2, is_active = $3,
			password_hash = COALESCE($4, password_hash), updated_at = NOW()
		WHERE id = $5
	`, normalizeEmail(p.Email), p.DisplayName, p.IsActive, hash, p.ID)
	if err != nil {
		return nil, translate("update user", err, ErrInvalidReference)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.FindByID(ctx, p.ID)
}

// SetRoles replaces the user's role assignments. Unknown role IDs yield
// ErrInvalidReference.
func (s *UserStore) SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceRoles(ctx, tx, userID, roleIDs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return tx.Commit()
}

func replaceRoles(ctx context.Context, tx *sql.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}
	seen := make(map[uuid.UUID]bool, len(roleIDs))
	for _, rid := range roleIDs {
		if seen[rid] {
			continue
		}
		seen[rid] = true
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, rid); err != nil {
			return translate("assign role "+rid.String(), err, ErrInvalidReference)
		}
	}
	return nil
}

// CountActiveAdmins returns how many active users hold the admin role.
func (s *UserStore) CountActiveAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT u.id)
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id
		WHERE r.name = $1 AND u.is_active
	`, models.RoleAdmin).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id = $2
	`, secret, userID)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// ResetTOTP clears the TOTP secret and disables 2FA for a user.
// The user will be forced to set up 2FA again on their next login.
func (s *UserStore) ResetTOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("reset totp: %w", err)
	}
	return nil
}

// Delete removes a user by ID. Users who still author blogs or own media
// cannot be deleted (ErrInUse). Reports whether a row was deleted.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, translate("delete user", err, ErrInUse)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return n > 0, nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// normalizeEmail lowercases and trims an address so the unique index on
// users.email is effectively case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
