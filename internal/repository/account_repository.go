package repository

import (
	"database/sql"
)

// Account is an identity-provider credential record. It lives outside
// the tenant-scoped data model: accounts belong to the identity boundary
// and only the identity package touches them.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
}

type AccountRepository interface {
	CreateAccount(id, email, passwordHash string) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	GetAccountByID(id string) (Account, error)
	DeleteAccount(id string) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) CreateAccount(id, email, passwordHash string) (Account, error) {
	const query = `
		INSERT INTO erp.accounts (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash;
	`
	var account Account
	err := r.db.QueryRow(query, id, email, passwordHash).Scan(&account.ID, &account.Email, &account.PasswordHash)
	return account, err
}

func (r *accountRepository) GetAccountByEmail(email string) (Account, error) {
	const query = `
		SELECT id, email, password_hash
		FROM erp.accounts
		WHERE email = $1;
	`
	var account Account
	err := r.db.QueryRow(query, email).Scan(&account.ID, &account.Email, &account.PasswordHash)
	return account, err
}

func (r *accountRepository) GetAccountByID(id string) (Account, error) {
	const query = `
		SELECT id, email, password_hash
		FROM erp.accounts
		WHERE id = $1;
	`
	var account Account
	err := r.db.QueryRow(query, id).Scan(&account.ID, &account.Email, &account.PasswordHash)
	return account, err
}

// DeleteAccount removes a credential record. Used as the compensation
// step when local user creation fails after the account was created.
func (r *accountRepository) DeleteAccount(id string) error {
	const query = `
		DELETE FROM erp.accounts
		WHERE id = $1;
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
