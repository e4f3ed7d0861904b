package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"boat_rental/internal/domain"
)

const uniqueViolation = "23505"

func (r *Repo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	err := r.db.QueryRowContext(ctx, insertUserSQL,
		u.Username, u.Email, u.PasswordHash,
		string(u.Role), string(u.Plan), u.Phone,
	).Scan(&u.ID, &u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.User{}, domain.ErrConflict
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, getUserByUsernameSQL, username))
}

func (r *Repo) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, getUserByIDSQL, id))
}

func (r *Repo) scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var role, plan string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &plan, &u.Phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.Plan = domain.SubscriptionPlan(plan)
	return u, nil
}

func (r *Repo) AddFavorite(ctx context.Context, userID int64, slug string) error {
	_, err := r.db.ExecContext(ctx, addFavoriteSQL, userID, slug)
	return err
}

func (r *Repo) RemoveFavorite(ctx context.Context, userID int64, slug string) error {
	res, err := r.db.ExecContext(ctx, removeFavoriteSQL, userID, slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) ListFavorites(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, listFavoritesSQL, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.BoatSlug, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
