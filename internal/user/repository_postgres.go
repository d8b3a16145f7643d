package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE raised by the users_email_key index.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id, nome, email, senha, telefones, ultimo_login, created_at, updated_at`

	getUserByIDQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	getUserByEmailQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`
	insertUserQuery = `
		INSERT INTO users (id, nome, email, senha, telefones)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	touchLastLoginQuery = `
		UPDATE users
		SET ultimo_login = $2,
			updated_at = $2
		WHERE id = $1
		RETURNING ` + userColumns
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return r.queryOne(ctx, getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.queryOne(ctx, getUserByEmailQuery, email)
}

func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	phones, err := json.Marshal(nonNilPhones(user.Phones))
	if err != nil {
		return User{}, err
	}

	user.ID = uuid.NewString()
	err = r.db.QueryRowContext(ctx,
		insertUserQuery,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(phones),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailExists
		}
		return User{}, err
	}

	user.LastLogin = nil
	return user, nil
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return r.queryOne(ctx, touchLastLoginQuery, id, at.UTC())
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...any) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func scanUser(scanner rowScanner) (User, error) {
	user := User{}
	var phones []byte
	var lastLogin sql.NullTime

	if err := scanner.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&phones,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	user.Phones = []Phone{}
	if len(phones) > 0 {
		if err := json.Unmarshal(phones, &user.Phones); err != nil {
			return User{}, err
		}
	}
	if lastLogin.Valid {
		at := lastLogin.Time
		user.LastLogin = &at
	}

	return user, nil
}

func nonNilPhones(phones []Phone) []Phone {
	if phones == nil {
		return []Phone{}
	}
	return phones
}
