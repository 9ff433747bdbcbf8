package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository supplies the current set of notifiable listings.
type Repository interface {
	// ListEligible returns every listing that is published, active, open, not
	// expired and of a notifiable type.
	ListEligible(ctx context.Context) ([]Listing, error)
}

// Linker builds the canonical public link of a listing.
type Linker struct {
	Host      string
	UTMSource string
}

// Link returns https://<host>/listing/<slug>?utm_source=<source>.
func (l Linker) Link(slug string) string {
	u := url.URL{
		Scheme: "https",
		Host:   l.Host,
		Path:   "/listing/" + slug,
	}
	if l.UTMSource != "" {
		u.RawQuery = url.Values{"utm_source": {l.UTMSource}}.Encode()
	}
	return u.String()
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.MaxConns <= 0 || cfg.MaxConns > 4 {
		cfg.MaxConns = 4
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// PostgresRepository reads listings from the marketplace database.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	linker Linker
	now    func() time.Time
	logger *slog.Logger
}

// NewPostgresRepository returns a repository backed by pool. A nil logger
// falls back to slog.Default.
func NewPostgresRepository(pool *pgxpool.Pool, linker Linker, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{pool: pool, linker: linker, now: time.Now, logger: logger}
}

const eligibleListingsQuery = `
	SELECT b.id::text, b.title, b.slug,
	       b."rewardAmount"::float8, b.token,
	       b."minRewardAsk"::float8, b."maxRewardAsk"::float8,
	       COALESCE(b."compensationType"::text, ''),
	       b.deadline, b.skills, COALESCE(b.region::text, ''), b.type::text,
	       s.name
	FROM "Bounties" b
	JOIN "Sponsors" s ON s.id = b."sponsorId"
	WHERE b."isPublished" = true
	  AND b."isActive" = true
	  AND b.deadline >= $1
	  AND b.status = 'OPEN'
	  AND b.type::text = ANY($2)`

// ListEligible implements Repository. Rows that cannot be turned into a
// Listing are logged and skipped; only query and scan failures are errors.
func (r *PostgresRepository) ListEligible(ctx context.Context) ([]Listing, error) {
	rows, err := r.pool.Query(ctx, eligibleListingsQuery,
		r.now().UTC(), []string{string(TypeBounty), string(TypeProject)})
	if err != nil {
		return nil, fmt.Errorf("querying eligible listings: %w", err)
	}

	raws, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rawListing, error) {
		var raw rawListing
		err := row.Scan(
			&raw.ID, &raw.Title, &raw.Slug,
			&raw.RewardAmount, &raw.Token,
			&raw.MinRewardAsk, &raw.MaxRewardAsk,
			&raw.CompensationType,
			&raw.Deadline, &raw.Skills, &raw.Region, &raw.Type,
			&raw.SponsorName,
		)
		return raw, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning eligible listings: %w", err)
	}
	return r.convert(raws), nil
}

func (r *PostgresRepository) convert(raws []rawListing) []Listing {
	listings := make([]Listing, 0, len(raws))
	for _, raw := range raws {
		l, err := raw.toListing(r.linker, r.logger)
		if err != nil {
			r.logger.Warn("skipping listing", "listing_id", raw.ID, "error", err)
			continue
		}
		listings = append(listings, l)
	}
	return listings
}

// rawListing is one row of eligibleListingsQuery before canonicalization.
type rawListing struct {
	ID               string
	Title            string
	Slug             string
	RewardAmount     *float64
	Token            *string
	MinRewardAsk     *float64
	MaxRewardAsk     *float64
	CompensationType string
	Deadline         *time.Time
	Skills           []byte
	Region           string
	Type             string
	SponsorName      string
}

func (raw rawListing) toListing(linker Linker, logger *slog.Logger) (Listing, error) {
	typ, ok := CanonicalType(raw.Type)
	if !ok {
		return Listing{}, fmt.Errorf("listing %s: type %q is not notifiable", raw.ID, raw.Type)
	}
	skills, err := ParseSkills(raw.Skills)
	if err != nil {
		logger.Warn("ignoring malformed skills", "listing_id", raw.ID, "error", err)
	}

	l := Listing{
		ID:               raw.ID,
		Name:             raw.Title,
		Slug:             raw.Slug,
		Link:             linker.Link(raw.Slug),
		Payout:           raw.RewardAmount,
		MinRewardAsk:     raw.MinRewardAsk,
		MaxRewardAsk:     raw.MaxRewardAsk,
		CompensationType: CanonicalCompensation(raw.CompensationType),
		SponsorName:      raw.SponsorName,
		Skills:           skills,
		Region:           CanonicalRegion(raw.Region),
		Type:             typ,
	}
	if raw.Token != nil {
		l.Token = *raw.Token
	}
	if raw.Deadline != nil {
		d := raw.Deadline.UTC()
		l.Deadline = &d
	}
	return l, nil
}

// ParseSkills decodes the skills JSON column. Both ["Frontend", ...] and
// [{"skills": "Frontend", "subskills": [...]}, ...] are accepted. Malformed
// content never fails the listing: a value that is not an array yields no
// skills and unsupported entries are dropped. The returned skills are always
// usable; the error describes what was ignored.
func ParseSkills(data []byte) ([]Skill, error) {
	if len(data) == 0 || string(data) == "null" {
		return []Skill{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return []Skill{}, fmt.Errorf("parsing skills: %w", err)
	}

	names := make([]string, 0, len(items))
	var errs []error
	for _, item := range items {
		name, ok := skillEntry(item)
		if !ok {
			errs = append(errs, fmt.Errorf("unsupported skill entry %s", item))
			continue
		}
		names = append(names, name)
	}
	return CanonicalSkills(names), errors.Join(errs...)
}

// skillEntry reads a plain string or the "skills" field of an object.
func skillEntry(item json.RawMessage) (string, bool) {
	var name string
	if err := json.Unmarshal(item, &name); err == nil {
		return name, true
	}
	var obj struct {
		Skills *string `json:"skills"`
	}
	if err := json.Unmarshal(item, &obj); err == nil && obj.Skills != nil {
		return *obj.Skills, true
	}
	return "", false
}
