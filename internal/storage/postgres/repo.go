package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"boat_rental/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func ptrStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
func ptrInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
func ptrF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertBoat(ctx context.Context, b domain.Boat) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, upsertBoatSQL,
		b.BoatID,
		b.Slug,
		b.SourceURL,
		valInt64(b.CharterID),
		valStr(b.Manufacturer),
		valStr(b.Model),
		valInt(b.Year),
		valJSON(b.RawJSON),
	).Scan(&id)
	return id, err
}

func (r *Repo) UpsertSpecs(ctx context.Context, s domain.BoatSpecs) error {
	_, err := r.db.ExecContext(ctx, upsertSpecsSQL,
		s.BoatID,
		valF64(s.Length),
		valF64(s.Beam),
		valF64(s.Draft),
		valInt(s.Cabins),
		valInt(s.Berths),
		valInt(s.Toilets),
		valInt(s.FuelCapacity),
		valInt(s.WaterCapacity),
		valF64(s.MaxSpeed),
		valInt(s.EnginePower),
		valInt(s.NumberEngines),
		valInt(s.RenovatedYear),
		valStr(s.EngineType),
		valStr(s.FuelType),
	)
	return err
}

func (r *Repo) UpsertDescription(ctx context.Context, d domain.BoatDescription) error {
	_, err := r.db.ExecContext(ctx, upsertDescriptionSQL,
		d.BoatID, d.Language,
		d.Title, d.Description, d.Location, d.Marina,
		d.Country, d.Region, d.City,
	)
	return err
}

func (r *Repo) UpsertDetails(ctx context.Context, d domain.BoatDetails) error {
	_, err := r.db.ExecContext(ctx, upsertDetailsSQL,
		d.BoatID, d.Language,
		valJSON(d.Extras),
		valJSON(d.AdditionalServices),
		valJSON(d.DeliveryExtras),
		valJSON(d.NotIncluded),
		valJSON(d.Cockpit),
		valJSON(d.Entertainment),
		valJSON(d.Equipment),
	)
	return err
}

func (r *Repo) UpsertPrice(ctx context.Context, p domain.BoatPrice) error {
	_, err := r.db.ExecContext(ctx, upsertPriceSQL,
		p.BoatID, p.Currency, p.PricePerDay, valF64(p.PricePerWeek),
	)
	return err
}

// ReplaceGallery swaps the photo set atomically; a failed parse must not
// leave a half-replaced gallery behind.
func (r *Repo) ReplaceGallery(ctx context.Context, boatID int64, photos []domain.BoatPhoto) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM boat_gallery WHERE boat_id = $1`, boatID); err != nil {
		return err
	}
	for i, p := range photos {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO boat_gallery (boat_id, url, ord) VALUES ($1, $2, $3)`,
			boatID, p.URL, i+1,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) MarkParseFailure(ctx context.Context, slug string) error {
	_, err := r.db.ExecContext(ctx, markParseFailureSQL, slug)
	return err
}

func (r *Repo) LogParseMiss(ctx context.Context, slug string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, slug, status, reason)
	return err
}

func (r *Repo) GetBoatBySlug(ctx context.Context, slug string) (domain.Boat, error) {
	var b domain.Boat
	var charterID sql.NullInt64
	var manufacturer, model sql.NullString
	var year sql.NullInt64
	var raw []byte

	err := r.db.QueryRowContext(ctx, getBoatBySlugSQL, slug).Scan(
		&b.ID, &b.BoatID, &b.Slug, &b.SourceURL,
		&charterID, &manufacturer, &model, &year,
		&raw, &b.LastParsed, &b.ParseCount, &b.LastParseSuccess,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Boat{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Boat{}, err
	}
	if charterID.Valid {
		id := charterID.Int64
		b.CharterID = &id
	}
	b.Manufacturer = ptrStr(manufacturer)
	b.Model = ptrStr(model)
	b.Year = ptrInt(year)
	b.RawJSON = raw
	return b, nil
}

func (r *Repo) GetBoatView(ctx context.Context, slug, lang string) (domain.BoatView, error) {
	bv, ok, err := r.scanBoatView(ctx, slug, lang)
	if err != nil {
		return domain.BoatView{}, err
	}
	// localized row missing: retry with the canonical language
	if !ok && lang != domain.Languages[0] {
		bv, _, err = r.scanBoatView(ctx, slug, domain.Languages[0])
		if err != nil {
			return domain.BoatView{}, err
		}
	}
	bv.Language = lang
	return bv, nil
}

// scanBoatView returns ok=false when the boat row exists but has no
// description in the requested language.
func (r *Repo) scanBoatView(ctx context.Context, slug, lang string) (domain.BoatView, bool, error) {
	row := r.db.QueryRowContext(ctx, getBoatViewSQL, slug, lang)

	var bv domain.BoatView
	var rowID int64
	var manufacturer, model sql.NullString
	var year sql.NullInt64
	var charterID sql.NullInt64
	var title, desc, loc, marina, country, region, city sql.NullString
	var length, beam, draft, maxSpeed sql.NullFloat64
	var cabins, berths, toilets, fuelCap, waterCap, enginePower, numEngines sql.NullInt64
	var engineType sql.NullString
	var pricePerDay sql.NullFloat64
	var currency sql.NullString
	var extras, adds, delivery, notIncl, cockpit, entertainment, equipment []byte

	err := row.Scan(
		&rowID, &bv.BoatID, &bv.Slug, &manufacturer, &model, &year, &charterID, &bv.ParsedAt,
		&title, &desc, &loc, &marina, &country, &region, &city,
		&length, &beam, &draft, &cabins, &berths, &toilets,
		&fuelCap, &waterCap, &maxSpeed, &enginePower,
		&numEngines, &engineType,
		&pricePerDay, &currency,
		&extras, &adds, &delivery, &notIncl,
		&cockpit, &entertainment, &equipment,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BoatView{}, false, domain.ErrNotFound
	}
	if err != nil {
		return domain.BoatView{}, false, err
	}

	bv.Manufacturer = ptrStr(manufacturer)
	bv.Model = ptrStr(model)
	bv.Year = ptrInt(year)
	bv.Title = title.String
	bv.Description = desc.String
	bv.Location = loc.String
	bv.Marina = marina.String
	bv.Country = country.String
	bv.Region = region.String
	bv.City = city.String

	if length.Valid || cabins.Valid || berths.Valid {
		bv.Specs = &domain.BoatSpecsView{
			Length:        ptrF64(length),
			Beam:          ptrF64(beam),
			Draft:         ptrF64(draft),
			Cabins:        ptrInt(cabins),
			Berths:        ptrInt(berths),
			Toilets:       ptrInt(toilets),
			FuelCapacity:  ptrInt(fuelCap),
			WaterCapacity: ptrInt(waterCap),
			MaxSpeed:      ptrF64(maxSpeed),
			EnginePower:   ptrInt(enginePower),
			NumberEngines: ptrInt(numEngines),
			EngineType:    ptrStr(engineType),
		}
	}
	if pricePerDay.Valid {
		bv.Price = &domain.BoatPriceView{PerDay: pricePerDay.Float64, Currency: currency.String}
	}
	bv.Services = domain.BoatServicesRaw{
		Extras:             extras,
		AdditionalServices: adds,
		DeliveryExtras:     delivery,
		NotIncluded:        notIncl,
		Cockpit:            cockpit,
		Entertainment:      entertainment,
		Equipment:          equipment,
	}

	if charterID.Valid {
		if ch, err := r.GetCharter(ctx, charterID.Int64); err == nil {
			bv.Charter = &domain.CharterView{Name: ch.Name, Logo: ch.Logo, Commission: ch.Commission}
		}
	}

	bv.Images, err = r.listGallery(ctx, rowID)
	if err != nil {
		return domain.BoatView{}, false, err
	}

	hasText := strings.TrimSpace(title.String) != ""
	return bv, hasText, nil
}

func (r *Repo) listGallery(ctx context.Context, boatID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listGallerySQL, boatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	urls := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (r *Repo) BoatExists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM parsed_boats WHERE slug = $1`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) ListStaleSlugs(ctx context.Context, olderThanHours, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listStaleSlugsSQL, olderThanHours, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

func (r *Repo) GetOrCreateCharter(ctx context.Context, charterID, name, logo string) (domain.Charter, error) {
	var ch domain.Charter
	err := r.db.QueryRowContext(ctx, getOrCreateCharterSQL, charterID, name, logo).Scan(
		&ch.ID, &ch.CharterID, &ch.Name, &ch.Logo, &ch.Commission,
	)
	return ch, err
}

func (r *Repo) GetCharter(ctx context.Context, id int64) (domain.Charter, error) {
	var ch domain.Charter
	err := r.db.QueryRowContext(ctx, getCharterSQL, id).Scan(
		&ch.ID, &ch.CharterID, &ch.Name, &ch.Logo, &ch.Commission,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Charter{}, domain.ErrNotFound
	}
	return ch, err
}
