package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"boat_rental/internal/domain"
)

func (r *Repo) CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	var expires any
	if o.ExpiresAt != nil {
		expires = *o.ExpiresAt
	}
	err := r.db.QueryRowContext(ctx, insertOfferSQL,
		o.UUID,
		o.CreatedBy,
		string(o.OfferType),
		string(o.BrandingMode),
		o.SourceURL,
		o.CheckIn,
		o.CheckOut,
		valJSON(o.BoatData),
		o.TotalPrice,
		valF64(o.OriginalPrice),
		o.Discount,
		o.Currency,
		o.Title,
		o.Notes,
		o.HasMeal,
		o.ShowCountdown,
		expires,
	).Scan(&o.ID, &o.CreatedAt, &o.ViewsCount, &o.IsActive)
	return o, err
}

func (r *Repo) GetOfferByUUID(ctx context.Context, uuid string) (domain.Offer, error) {
	return r.scanOffer(r.db.QueryRowContext(ctx, getOfferSQL, uuid))
}

func (r *Repo) IncrementOfferViews(ctx context.Context, uuid string) error {
	_, err := r.db.ExecContext(ctx, incrementOfferViewsSQL, uuid)
	return err
}

func (r *Repo) ListOffersByUser(ctx context.Context, userID int64, limit int) ([]domain.Offer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, listOffersByUserSQL, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Offer
	for rows.Next() {
		o, err := r.scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) DeactivateOffer(ctx context.Context, uuid string) error {
	res, err := r.db.ExecContext(ctx, deactivateOfferSQL, uuid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repo) scanOffer(row rowScanner) (domain.Offer, error) {
	var o domain.Offer
	var offerType, branding string
	var boatData []byte
	var originalPrice sql.NullFloat64
	var expiresAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.UUID, &o.CreatedBy, &offerType, &branding, &o.SourceURL,
		&o.CheckIn, &o.CheckOut, &boatData, &o.TotalPrice, &originalPrice,
		&o.Discount, &o.Currency, &o.Title, &o.Notes, &o.HasMeal,
		&o.ShowCountdown, &o.CreatedAt, &expiresAt, &o.ViewsCount, &o.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Offer{}, err
	}

	o.OfferType = domain.OfferType(offerType)
	o.BrandingMode = domain.BrandingMode(branding)
	o.BoatData = boatData
	o.OriginalPrice = ptrF64(originalPrice)
	if expiresAt.Valid {
		t := expiresAt.Time.In(time.UTC)
		o.ExpiresAt = &t
	}
	return o, nil
}
