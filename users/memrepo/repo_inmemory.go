package memrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/incal-auth/users"
)

var (
	_ users.UserRepo   = (*InMemoryUserRepo)(nil)
	_ users.InviteRepo = (*InMemoryUserRepo)(nil)
)

// InMemoryUserRepo keeps users and invites in process memory.
type InMemoryUserRepo struct {
	lock     sync.RWMutex
	users    map[string]*users.User // id to user
	emailIDs map[string]string      // email to user id
	invites  map[string]*users.Invite
}

func New() *InMemoryUserRepo {
	return &InMemoryUserRepo{
		users:    make(map[string]*users.User),
		emailIDs: make(map[string]string),
		invites:  make(map[string]*users.Invite),
	}
}

func (r *InMemoryUserRepo) Create(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.emailIDs[user.Email]; ok {
		return users.ErrUserExists
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	copied := *user
	r.users[user.ID] = &copied
	r.emailIDs[user.Email] = user.ID
	return nil
}

func (r *InMemoryUserRepo) Update(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return users.ErrUserNotFound
	}
	if existing.Email != user.Email {
		delete(r.emailIDs, existing.Email)
		r.emailIDs[user.Email] = user.ID
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *InMemoryUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.emailIDs[email]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *r.users[id]
	return &copied, nil
}

func (r *InMemoryUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *InMemoryUserRepo) CountAnchors(_ context.Context) (int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	n := 0
	for _, u := range r.users {
		if u.IsAnchor {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryUserRepo) SaveInvite(_ context.Context, invite *users.Invite) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	copied := *invite
	r.invites[invite.Slug] = &copied
	return nil
}

func (r *InMemoryUserRepo) GetInvite(_ context.Context, slug string) (*users.Invite, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	invite, ok := r.invites[slug]
	if !ok {
		return nil, users.ErrInviteNotFound
	}
	copied := *invite
	return &copied, nil
}

func (r *InMemoryUserRepo) RemoveInvite(_ context.Context, slug string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.invites, slug)
	return nil
}
