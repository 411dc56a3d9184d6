package staticrepo

import (
	"os"
	"sort"

	"github.com/jrsteele09/incal-auth/clients"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var _ clients.Repo = (*StaticClientRepo)(nil)

// StaticClientRepo is a read-only client repo populated once at start up.
type StaticClientRepo struct {
	clients map[string]*clients.Client
}

// New validates every client and rejects duplicate IDs.
func New(list ...*clients.Client) (*StaticClientRepo, error) {
	r := &StaticClientRepo{clients: make(map[string]*clients.Client, len(list))}
	for _, c := range list {
		if err := c.Validate(); err != nil {
			return nil, errors.Wrap(err, "[staticrepo.New]")
		}
		if _, exists := r.clients[c.ID]; exists {
			return nil, errors.Errorf("[staticrepo.New] duplicate client id %q", c.ID)
		}
		r.clients[c.ID] = c.Clone()
	}
	return r, nil
}

type clientsFile struct {
	Clients []*clients.Client `yaml:"clients"`
}

// LoadFile reads a YAML document of the form
//
//	clients:
//	  - id: dashboard
//	    type: public
//	    ...
func LoadFile(path string) (*StaticClientRepo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "[staticrepo.LoadFile] reading %s", path)
	}
	var f clientsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "[staticrepo.LoadFile] parsing %s", path)
	}
	return New(f.Clients...)
}

// Get returns a copy so callers cannot mutate the registered client.
func (r *StaticClientRepo) Get(clientID string) (*clients.Client, error) {
	client, ok := r.clients[clientID]
	if !ok {
		return nil, clients.ErrClientNotFound
	}
	return client.Clone(), nil
}

func (r *StaticClientRepo) List() ([]*clients.Client, error) {
	list := make([]*clients.Client, 0, len(r.clients))
	for _, c := range r.clients {
		list = append(list, c.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}
