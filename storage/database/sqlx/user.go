package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/user"
)

const userColumns = `id, username, COALESCE(email, '') AS email, password_hash, is_active, is_admin, created_at, updated_at, last_login`

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedID ...string) error {
	var taken []struct {
		Username string      `db:"username"`
		Email    null.String `db:"email"`
	}
	err := repo.db.SelectContext(ctx, &taken,
		`SELECT username, email FROM "user"
		WHERE (username = $1 OR (email IS NOT NULL AND email = $2)) AND id::text <> ALL($3)`,
		username, email, excludedIDs(excludedID))
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, u := range taken {
		if u.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := sqlx.NamedExecContext(ctx, repo.db,
		`INSERT INTO "user" (id, username, email, password_hash, is_active, is_admin, created_at, updated_at, last_login)
		VALUES (:id, :username, NULLIF(:email, ''), :password_hash, :is_active, :is_admin, :created_at, :updated_at, :last_login)`,
		usr)
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if constraint == "user_email_key" {
				return user.User{}, user.ErrEmailExists
			}
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	ordering := core.DBOrdering{Field: "created_at"}
	if err := repo.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM "user" ORDER BY `+ordering.String()); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) get(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, `SELECT `+userColumns+` FROM "user" WHERE `+where+` LIMIT 1`, args...); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, "email = $1", email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, "username = $1 OR email = $1", username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.db,
		`UPDATE "user" SET username = :username, email = NULLIF(:email, ''), password_hash = :password_hash,
		is_active = :is_active, is_admin = :is_admin, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		usr)
	if err = oneRow(res, err, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}
