package postgres

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jrsteele09/incal-auth/users"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{"id", "email", "first_name", "last_name", "password_hash", "is_anchor", "created_at"}

var inviteColumns = []string{"slug", "from_email", "to_email", "created_at"}

const uniqueViolation = "23505"

var (
	_ users.UserRepo   = (*Store)(nil)
	_ users.InviteRepo = (*Store)(nil)
)

// Store implements the user and invite repos on PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.Open]")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[postgres.Open] ping")
	}
	return db, nil
}

func (s *Store) Create(ctx context.Context, user *users.User) error {
	query, args, err := psq.Insert("users").Columns(userColumns...).
		Values(user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.IsAnchor, user.CreatedAt).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "[postgres.Create] building query")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return users.ErrUserExists
		}
		return errors.Wrap(err, "[postgres.Create] inserting user")
	}
	return nil
}

func (s *Store) Update(ctx context.Context, user *users.User) error {
	query, args, err := psq.Update("users").
		Set("email", user.Email).
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("password_hash", user.PasswordHash).
		Set("is_anchor", user.IsAnchor).
		Where(sq.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "[postgres.Update] building query")
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "[postgres.Update] updating user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[postgres.Update] rows affected")
	}
	if n == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.getUser(ctx, sq.Eq{"email": email})
}

func (s *Store) GetByID(ctx context.Context, id string) (*users.User, error) {
	return s.getUser(ctx, sq.Eq{"id": id})
}

func (s *Store) getUser(ctx context.Context, where sq.Eq) (*users.User, error) {
	query, args, err := psq.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.getUser] building query")
	}
	var u users.User
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.IsAnchor,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.getUser] querying user")
	}
	return &u, nil
}

func (s *Store) CountAnchors(ctx context.Context) (int, error) {
	query, args, err := psq.Select("COUNT(*)").From("users").Where(sq.Eq{"is_anchor": true}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "[postgres.CountAnchors] building query")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "[postgres.CountAnchors] querying")
	}
	return n, nil
}

func (s *Store) SaveInvite(ctx context.Context, invite *users.Invite) error {
	query, args, err := psq.Insert("invites").Columns(inviteColumns...).
		Values(invite.Slug, invite.FromEmail, invite.ToEmail, invite.CreatedAt).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "[postgres.SaveInvite] building query")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "[postgres.SaveInvite] inserting invite")
	}
	return nil
}

func (s *Store) GetInvite(ctx context.Context, slug string) (*users.Invite, error) {
	query, args, err := psq.Select(inviteColumns...).From("invites").Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.GetInvite] building query")
	}
	var inv users.Invite
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&inv.Slug, &inv.FromEmail, &inv.ToEmail, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrInviteNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[postgres.GetInvite] querying invite")
	}
	return &inv, nil
}

func (s *Store) RemoveInvite(ctx context.Context, slug string) error {
	query, args, err := psq.Delete("invites").Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return errors.Wrap(err, "[postgres.RemoveInvite] building query")
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "[postgres.RemoveInvite] deleting invite")
	}
	return nil
}
