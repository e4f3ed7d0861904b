package postgres

const upsertBoatSQL = `
INSERT INTO parsed_boats
  (boat_id, slug, source_url, charter_id, manufacturer, model, year, raw, last_parsed, last_parse_success)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, now(), TRUE)
ON CONFLICT (boat_id) DO UPDATE SET
  slug               = EXCLUDED.slug,
  source_url         = EXCLUDED.source_url,
  charter_id         = COALESCE(EXCLUDED.charter_id, parsed_boats.charter_id),
  manufacturer       = COALESCE(EXCLUDED.manufacturer, parsed_boats.manufacturer),
  model              = COALESCE(EXCLUDED.model, parsed_boats.model),
  year               = COALESCE(EXCLUDED.year, parsed_boats.year),
  raw                = EXCLUDED.raw,
  last_parsed        = now(),
  last_parse_success = TRUE,
  parse_count        = parsed_boats.parse_count + 1
RETURNING id
`

const upsertSpecsSQL = `
INSERT INTO boat_specs
  (boat_id, length, beam, draft, cabins, berths, toilets, fuel_capacity,
   water_capacity, max_speed, engine_power, number_engines, renovated_year,
   engine_type, fuel_type)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (boat_id) DO UPDATE SET
  length         = EXCLUDED.length,
  beam           = EXCLUDED.beam,
  draft          = EXCLUDED.draft,
  cabins         = EXCLUDED.cabins,
  berths         = EXCLUDED.berths,
  toilets        = EXCLUDED.toilets,
  fuel_capacity  = EXCLUDED.fuel_capacity,
  water_capacity = EXCLUDED.water_capacity,
  max_speed      = EXCLUDED.max_speed,
  engine_power   = EXCLUDED.engine_power,
  number_engines = EXCLUDED.number_engines,
  renovated_year = EXCLUDED.renovated_year,
  engine_type    = EXCLUDED.engine_type,
  fuel_type      = EXCLUDED.fuel_type
`

const upsertDescriptionSQL = `
INSERT INTO boat_descriptions
  (boat_id, language, title, description, location, marina, country, region, city)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (boat_id, language) DO UPDATE SET
  title       = EXCLUDED.title,
  description = EXCLUDED.description,
  location    = EXCLUDED.location,
  marina      = EXCLUDED.marina,
  country     = EXCLUDED.country,
  region      = EXCLUDED.region,
  city        = EXCLUDED.city
`

const upsertDetailsSQL = `
INSERT INTO boat_details
  (boat_id, language, extras, additional_services, delivery_extras,
   not_included, cockpit, entertainment, equipment)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (boat_id, language) DO UPDATE SET
  extras              = EXCLUDED.extras,
  additional_services = EXCLUDED.additional_services,
  delivery_extras     = EXCLUDED.delivery_extras,
  not_included        = EXCLUDED.not_included,
  cockpit             = EXCLUDED.cockpit,
  entertainment       = EXCLUDED.entertainment,
  equipment           = EXCLUDED.equipment
`

const upsertPriceSQL = `
INSERT INTO boat_prices (boat_id, currency, price_per_day, price_per_week)
VALUES ($1, $2, $3, $4)
ON CONFLICT (boat_id, currency) DO UPDATE SET
  price_per_day  = EXCLUDED.price_per_day,
  price_per_week = EXCLUDED.price_per_week
`

const markParseFailureSQL = `
UPDATE parsed_boats
SET last_parse_success = FALSE, parse_count = parse_count + 1
WHERE slug = $1
`

const insertMissSQL = `
INSERT INTO parse_misses (slug, http_status, reason)
VALUES ($1, $2, $3)
ON CONFLICT (slug) DO UPDATE SET
  http_status = EXCLUDED.http_status,
  reason      = EXCLUDED.reason,
  seen_at     = now()
`

const getBoatBySlugSQL = `
SELECT id, boat_id, slug, source_url, charter_id, manufacturer, model, year,
       raw, last_parsed, parse_count, last_parse_success
FROM parsed_boats
WHERE slug = $1
`

// The description join falls back to the canonical language when the
// requested one was never scraped.
const getBoatViewSQL = `
SELECT
  p.id, p.boat_id, p.slug, p.manufacturer, p.model, p.year, p.charter_id, p.last_parsed,
  d.title, d.description, d.location, d.marina, d.country, d.region, d.city,
  s.length, s.beam, s.draft, s.cabins, s.berths, s.toilets,
  s.fuel_capacity, s.water_capacity, s.max_speed, s.engine_power,
  s.number_engines, s.engine_type,
  pr.price_per_day, pr.currency,
  dt.extras, dt.additional_services, dt.delivery_extras, dt.not_included,
  dt.cockpit, dt.entertainment, dt.equipment
FROM parsed_boats p
LEFT JOIN boat_descriptions d
  ON d.boat_id = p.id AND d.language = $2
LEFT JOIN boat_specs s  ON s.boat_id = p.id
LEFT JOIN boat_prices pr ON pr.boat_id = p.id AND pr.currency = 'EUR'
LEFT JOIN boat_details dt
  ON dt.boat_id = p.id AND dt.language = $2
WHERE p.slug = $1
`

const listGallerySQL = `
SELECT url FROM boat_gallery WHERE boat_id = $1 ORDER BY ord, id
`

const listStaleSlugsSQL = `
SELECT slug FROM parsed_boats
WHERE last_parsed < now() - ($1 * INTERVAL '1 hour') OR last_parse_success = FALSE
ORDER BY last_parsed
LIMIT $2
`

const getOrCreateCharterSQL = `
INSERT INTO charters (charter_id, name, logo)
VALUES ($1, $2, $3)
ON CONFLICT (charter_id) DO UPDATE SET
  name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE charters.name END,
  logo = CASE WHEN EXCLUDED.logo <> '' THEN EXCLUDED.logo ELSE charters.logo END
RETURNING id, charter_id, name, logo, commission
`

const getCharterSQL = `
SELECT id, charter_id, name, logo, commission FROM charters WHERE id = $1
`

const insertOfferSQL = `
INSERT INTO offers
  (uuid, created_by, offer_type, branding_mode, source_url, check_in, check_out,
   boat_data, total_price, original_price, discount, currency, title, notes,
   has_meal, show_countdown, expires_at)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING id, created_at, views_count, is_active
`

const getOfferSQL = `
SELECT id, uuid, created_by, offer_type, branding_mode, source_url, check_in,
       check_out, boat_data, total_price, original_price, discount, currency,
       title, notes, has_meal, show_countdown, created_at, expires_at,
       views_count, is_active
FROM offers
WHERE uuid = $1
`

const incrementOfferViewsSQL = `
UPDATE offers SET views_count = views_count + 1 WHERE uuid = $1
`

const listOffersByUserSQL = `
SELECT id, uuid, created_by, offer_type, branding_mode, source_url, check_in,
       check_out, boat_data, total_price, original_price, discount, currency,
       title, notes, has_meal, show_countdown, created_at, expires_at,
       views_count, is_active
FROM offers
WHERE created_by = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`

const deactivateOfferSQL = `
UPDATE offers SET is_active = FALSE WHERE uuid = $1
`

const insertUserSQL = `
INSERT INTO users (username, email, password_hash, role, plan, phone)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at
`

const getUserByUsernameSQL = `
SELECT id, username, email, password_hash, role, plan, phone, created_at
FROM users WHERE username = $1
`

const getUserByIDSQL = `
SELECT id, username, email, password_hash, role, plan, phone, created_at
FROM users WHERE id = $1
`

const addFavoriteSQL = `
INSERT INTO favorites (user_id, boat_slug)
VALUES ($1, $2)
ON CONFLICT (user_id, boat_slug) DO NOTHING
`

const removeFavoriteSQL = `
DELETE FROM favorites WHERE user_id = $1 AND boat_slug = $2
`

const listFavoritesSQL = `
SELECT id, user_id, boat_slug, created_at
FROM favorites
WHERE user_id = $1
ORDER BY created_at DESC
`
