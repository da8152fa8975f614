package repository

import (
	"database/sql"

	"github.com/craftplan/craftplan-api/internal/models"
)

type UserRepository interface {
	CreateUser(user models.User) (models.User, error)
	GetUserByID(id string) (models.User, error)
	GetUserByAccountID(accountID string) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
	GetTenantUserByEmail(tenantID, email string) (models.User, error)
	ListUsersByTenant(tenantID string) ([]models.User, error)
	BindTenant(userID, tenantID string) (models.User, error)
	SetActive(userID string, active bool) (models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = "id, account_id, tenant_id, email, full_name, is_active, email_verified, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var (
		u        models.User
		tenantID sql.NullString
	)
	err := row.Scan(&u.ID, &u.AccountID, &tenantID, &u.Email, &u.FullName, &u.IsActive, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	if tenantID.Valid {
		u.TenantID = &tenantID.String
	}
	return u, nil
}

func (r *userRepository) CreateUser(user models.User) (models.User, error) {
	const query = `
		INSERT INTO erp.users (account_id, tenant_id, email, full_name, is_active, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns + `;
	`

	var tenantID interface{}
	if user.TenantID != nil && *user.TenantID != "" {
		tenantID = *user.TenantID
	}

	return scanUser(r.db.QueryRow(query,
		user.AccountID,
		tenantID,
		user.Email,
		user.FullName,
		user.IsActive,
		user.EmailVerified,
	))
}

func (r *userRepository) GetUserByID(id string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM erp.users
		WHERE id = $1;
	`
	return scanUser(r.db.QueryRow(query, id))
}

func (r *userRepository) GetUserByAccountID(accountID string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM erp.users
		WHERE account_id = $1;
	`
	return scanUser(r.db.QueryRow(query, accountID))
}

func (r *userRepository) GetUserByEmail(email string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM erp.users
		WHERE email = $1;
	`
	return scanUser(r.db.QueryRow(query, email))
}

// GetTenantUserByEmail looks up a user within a single tenant. Used by
// invitation creation to reject invites for already-active members.
func (r *userRepository) GetTenantUserByEmail(tenantID, email string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM erp.users
		WHERE tenant_id = $1 AND email = $2;
	`
	return scanUser(r.db.QueryRow(query, tenantID, email))
}

func (r *userRepository) ListUsersByTenant(tenantID string) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM erp.users
		WHERE tenant_id = $1
		ORDER BY email;
	`

	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// BindTenant assigns the user to a tenant and activates them. Guarded so
// a user already bound elsewhere is never silently rebound.
func (r *userRepository) BindTenant(userID, tenantID string) (models.User, error) {
	const query = `
		UPDATE erp.users
		SET tenant_id = $2, is_active = TRUE, updated_at = now()
		WHERE id = $1 AND (tenant_id IS NULL OR tenant_id = $2)
		RETURNING ` + userColumns + `;
	`
	return scanUser(r.db.QueryRow(query, userID, tenantID))
}

func (r *userRepository) SetActive(userID string, active bool) (models.User, error) {
	const query = `
		UPDATE erp.users
		SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns + `;
	`
	return scanUser(r.db.QueryRow(query, userID, active))
}
