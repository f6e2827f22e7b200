package clients

import "context"

type Repo interface {
	// Create stores a new client, failing with ErrClientExists on id collision.
	Create(ctx context.Context, client *Client) error
	Get(ctx context.Context, clientID string) (*Client, error)
}
