package postgres

import (
	"context"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/sirupsen/logrus"
)

const userColumns = `id, username, password_hash, is_staff, is_superuser, date_joined`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (storages.User, error) {
	var u storages.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.IsSuperuser, &u.DateJoined)
	return u, err
}

func (s *Storage) CreateUser(ctx context.Context, user storages.User) (storages.User, error) {
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO users (username, password_hash, is_staff, is_superuser)
        VALUES ($1, $2, $3, $4)
        RETURNING id, date_joined`,
		user.Username, user.PasswordHash, user.IsStaff, user.IsSuperuser).Scan(&user.ID, &user.DateJoined)
	if err != nil {
		logrus.WithField("username", user.Username).WithError(err).Error("failed to insert user")
		return storages.User{}, mapError(err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user inserted")
	return user, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (storages.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return storages.User{}, mapError(err)
	}
	return u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (storages.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return storages.User{}, mapError(err)
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]storages.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		logrus.WithError(err).Error("failed to query users")
		return nil, err
	}
	defer rows.Close()

	users := []storages.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Storage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		logrus.WithField("user_id", id).WithError(err).Error("failed to update password")
		return err
	}
	return expectAffected(res)
}

// DeleteUser removes the user; tokens, balances and operations follow by
// cascade.
func (s *Storage) DeleteUser(ctx context.Context, id int64) (storages.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id))
	if err != nil {
		return storages.User{}, mapError(err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  u.ID,
		"username": u.Username,
	}).Info("user deleted")
	return u, nil
}

func (s *Storage) GetOrCreateToken(ctx context.Context, userID int64, key string) (string, error) {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO auth_tokens (key, user_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO NOTHING`,
		key, userID)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("failed to insert token")
		return "", mapError(err)
	}

	var stored string
	if err := s.db.QueryRowContext(ctx, `SELECT key FROM auth_tokens WHERE user_id = $1`, userID).Scan(&stored); err != nil {
		return "", mapError(err)
	}
	return stored, nil
}

func (s *Storage) UserByToken(ctx context.Context, key string) (storages.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
        SELECT u.id, u.username, u.password_hash, u.is_staff, u.is_superuser, u.date_joined
        FROM auth_tokens t
        JOIN users u ON u.id = t.user_id
        WHERE t.key = $1`,
		key))
	if err != nil {
		return storages.User{}, mapError(err)
	}
	return u, nil
}
