package users

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidInvite    = errors.New("invalid invite")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrExpiredInvite    = errors.New("expired invite")
	ErrBrokenInvite     = errors.New("invite is invalid")
)

// Service implements sign up, invites and credential checks on top of the repos.
type Service struct {
	users   UserRepo
	invites InviteRepo
	hasher  *PasswordHasher
	nowFunc func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type ServiceOption func(*Service)

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(users UserRepo, invites InviteRepo, hasher *PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("[users.NewService] user repo is required")
	}
	if invites == nil {
		return nil, errors.New("[users.NewService] invite repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[users.NewService] password hasher is required")
	}
	s := &Service{users: users, invites: invites, hasher: hasher, nowFunc: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate returns the user when email and password match. Unknown users,
// users without a password and wrong passwords all return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		// Spend the same bcrypt time as a real comparison.
		s.hasher.Verify(password, s.dummy())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "[users.Service.Authenticate]")
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.New().String())
	})
	return s.dummyHash
}

// RegisterRequest is the sign up form.
type RegisterRequest struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Register creates a member. The first member to register becomes an anchor.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, ErrMissingFields
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, errors.Wrap(err, "[users.Service.Register] lookup")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	anchors, err := s.users.CountAnchors(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[users.Service.Register] count anchors")
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		IsAnchor:     anchors == 0,
		CreatedAt:    s.nowFunc(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errors.Wrap(err, "[users.Service.Register] create")
	}
	return user, nil
}

// CreateInvite records an invite from an existing member. The invited email gets
// a password-less user record that AcceptInvite completes.
func (s *Service) CreateInvite(ctx context.Context, fromEmail, toEmail string) (*Invite, error) {
	fromEmail, toEmail = NormalizeEmail(fromEmail), NormalizeEmail(toEmail)
	if fromEmail == "" || toEmail == "" {
		return nil, ErrMissingFields
	}
	if _, err := s.users.GetByEmail(ctx, fromEmail); err != nil {
		return nil, errors.Wrap(err, "[users.Service.CreateInvite] inviter")
	}
	existing, err := s.users.GetByEmail(ctx, toEmail)
	switch {
	case errors.Is(err, ErrUserNotFound):
		stub := &User{ID: uuid.New().String(), Email: toEmail, CreatedAt: s.nowFunc()}
		if err := s.users.Create(ctx, stub); err != nil {
			return nil, errors.Wrap(err, "[users.Service.CreateInvite] create invitee")
		}
	case err != nil:
		return nil, errors.Wrap(err, "[users.Service.CreateInvite] invitee")
	case existing.HasPassword():
		return nil, ErrUserExists
	}

	slug, err := newSlug()
	if err != nil {
		return nil, err
	}
	invite := &Invite{Slug: slug, FromEmail: fromEmail, ToEmail: toEmail, CreatedAt: s.nowFunc()}
	if err := s.invites.SaveInvite(ctx, invite); err != nil {
		return nil, errors.Wrap(err, "[users.Service.CreateInvite] save")
	}
	return invite, nil
}

// Invitation is an invite together with both parties.
type Invitation struct {
	Invite *Invite
	From   *User
	To     *User
}

// Invitation resolves an invite slug. ErrInviteNotFound for unknown slugs,
// ErrBrokenInvite when either party no longer exists.
func (s *Service) Invitation(ctx context.Context, slug string) (*Invitation, error) {
	invite, err := s.invites.GetInvite(ctx, slug)
	if err != nil {
		return nil, err
	}
	from, fromErr := s.users.GetByEmail(ctx, invite.FromEmail)
	to, toErr := s.users.GetByEmail(ctx, invite.ToEmail)
	if fromErr != nil || toErr != nil {
		return nil, ErrBrokenInvite
	}
	return &Invitation{Invite: invite, From: from, To: to}, nil
}

// AcceptInviteRequest is the invite form.
type AcceptInviteRequest struct {
	Slug      string
	Email     string
	FirstName string
	LastName  string
	Password  string
	Confirm   string
}

// AcceptInvite sets the invited user's name and password and removes the invite.
func (s *Service) AcceptInvite(ctx context.Context, req AcceptInviteRequest) error {
	invite, err := s.invites.GetInvite(ctx, req.Slug)
	if err != nil || invite.ToEmail != NormalizeEmail(req.Email) {
		return ErrInvalidInvite
	}
	if req.Password == "" || req.Password != req.Confirm {
		return ErrPasswordMismatch
	}
	user, err := s.users.GetByEmail(ctx, invite.ToEmail)
	if err != nil {
		return ErrExpiredInvite
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}
	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return errors.Wrap(err, "[users.Service.AcceptInvite] update")
	}
	if err := s.invites.RemoveInvite(ctx, req.Slug); err != nil {
		return errors.Wrap(err, "[users.Service.AcceptInvite] remove invite")
	}
	return nil
}

// GetByID returns a member by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func newSlug() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "[users.newSlug] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
