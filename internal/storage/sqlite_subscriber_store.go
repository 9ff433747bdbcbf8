package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mael-bomane/earn-bot/internal/listing"
)

// SQLiteSubscriberStore implements SubscriberStore backed by SQLite.
type SQLiteSubscriberStore struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLiteSubscriberStore returns a new SQLiteSubscriberStore. A nil logger
// falls back to slog.Default.
func NewSQLiteSubscriberStore(db *sql.DB, logger *slog.Logger) *SQLiteSubscriberStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSubscriberStore{db: db, now: time.Now, logger: logger}
}

// errCorruptSubscriber marks a row that was read but whose stored settings
// cannot be decoded.
var errCorruptSubscriber = errors.New("corrupt subscriber row")

const subscriberColumns = `id, username, region, skills, notification_type, min_reward, setup, created_at, updated_at`

// UpsertSubscriber inserts a subscriber with default settings or refreshes the
// username of an existing row. Preferences of an existing row are kept.
func (s *SQLiteSubscriberStore) UpsertSubscriber(ctx context.Context, id int64, username string) (*Subscriber, error) {
	now := s.now().UTC()
	skills, err := encodeSkills([]listing.Skill{listing.SkillAll})
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, username, region, skills, notification_type, min_reward, setup, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`,
		id, strings.TrimSpace(username), string(listing.RegionGlobal), skills, string(PreferenceNone), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting subscriber %d: %w", id, err)
	}
	return s.GetSubscriber(ctx, id)
}

// GetSubscriber returns the subscriber with the given id, or nil if missing.
func (s *SQLiteSubscriberStore) GetSubscriber(ctx context.Context, id int64) (*Subscriber, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE id = ?`, id)
	sub, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscriber %d: %w", id, err)
	}
	return sub, nil
}

// UpdateSubscriber applies the non-nil fields of upd. Values are canonicalized
// before they are written.
func (s *SQLiteSubscriberStore) UpdateSubscriber(ctx context.Context, id int64, upd SubscriberUpdate) (*Subscriber, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)

	if upd.Region != nil {
		sets = append(sets, "region = ?")
		args = append(args, string(listing.CanonicalRegion(string(*upd.Region))))
	}
	if upd.Skills != nil {
		skills, err := encodeSkills(upd.Skills)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "skills = ?")
		args = append(args, skills)
	}
	if upd.NotificationType != nil {
		pref, err := ParseNotificationPreference(string(*upd.NotificationType))
		if err != nil {
			return nil, err
		}
		sets = append(sets, "notification_type = ?")
		args = append(args, string(pref))
	}
	if upd.MinReward != nil {
		if *upd.MinReward < 0 {
			return nil, fmt.Errorf("minimum reward must not be negative, got %v", *upd.MinReward)
		}
		sets = append(sets, "min_reward = ?")
		args = append(args, *upd.MinReward)
	}
	if upd.Setup != nil {
		sets = append(sets, "setup = ?")
		args = append(args, boolToInt(*upd.Setup))
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, s.now().UTC(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating subscriber %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating subscriber %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("subscriber %d: %w", id, ErrSubscriberNotFound)
	}
	return s.GetSubscriber(ctx, id)
}

// DeleteSubscriber removes the subscriber row. It is not an error to delete a
// missing subscriber.
func (s *SQLiteSubscriberStore) DeleteSubscriber(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting subscriber %d: %w", id, err)
	}
	return nil
}

// ListNotifiable returns subscribers with setup completed and a notification
// preference other than NONE, ordered by id. Rows whose settings cannot be
// decoded are logged and left out so one bad row does not hide the others.
func (s *SQLiteSubscriberStore) ListNotifiable(ctx context.Context) ([]*Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subscriberColumns+`
		FROM subscribers
		WHERE setup = 1 AND notification_type != ?
		ORDER BY id`, string(PreferenceNone))
	if err != nil {
		return nil, fmt.Errorf("listing notifiable subscribers: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	subs := make([]*Subscriber, 0)
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if errors.Is(err, errCorruptSubscriber) {
			s.logger.Warn("skipping subscriber with unreadable settings", "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (*Subscriber, error) {
	var (
		sub        Subscriber
		region     string
		skillsJSON string
		pref       string
		setup      int
	)
	if err := row.Scan(&sub.ID, &sub.Username, &region, &skillsJSON, &pref,
		&sub.MinReward, &setup, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}

	sub.Region = listing.CanonicalRegion(region)
	sub.Setup = setup != 0

	var raw []string
	if err := json.Unmarshal([]byte(skillsJSON), &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding skills of subscriber %d: %w", errCorruptSubscriber, sub.ID, err)
	}
	sub.Skills = listing.CanonicalSkills(raw)

	parsed, err := ParseNotificationPreference(pref)
	if err != nil {
		parsed = PreferenceNone
	}
	sub.NotificationType = parsed
	return &sub, nil
}

func encodeSkills(skills []listing.Skill) (string, error) {
	raw := make([]string, 0, len(skills))
	for _, s := range skills {
		raw = append(raw, string(s))
	}
	canon := listing.CanonicalSkills(raw)
	if len(canon) == 0 {
		canon = []listing.Skill{listing.SkillAll}
	}
	b, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("encoding skills: %w", err)
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
