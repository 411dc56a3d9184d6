package clients

// Repo is the read-only source of registered clients.
type Repo interface {
	Get(clientID string) (*Client, error)
	List() ([]*Client, error)
}
