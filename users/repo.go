package users

import "context"

// UserRepo stores community members keyed by email.
type UserRepo interface {
	Create(ctx context.Context, user *User) error // ErrUserExists when the email is taken
	Update(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	CountAnchors(ctx context.Context) (int, error)
}

// InviteRepo stores pending invites keyed by slug.
type InviteRepo interface {
	SaveInvite(ctx context.Context, invite *Invite) error
	GetInvite(ctx context.Context, slug string) (*Invite, error)
	RemoveInvite(ctx context.Context, slug string) error
}
