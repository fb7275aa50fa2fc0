package storage

import "context"

// AsyncClient is an external key-value service reached over the network.
type AsyncClient interface {
	// Get returns the bytes stored under key, or (nil, false, nil) if absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores data under key.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Async passes adapter calls through to an AsyncClient. A panic in the
// client is returned as *PanicError.
type Async struct {
	client AsyncClient
}

// NewAsync wraps client.
func NewAsync(client AsyncClient) *Async {
	return &Async{client: client}
}

// GetItem reads key from the client.
func (a *Async) GetItem(ctx context.Context, key string) (value string, ok bool, err error) {
	defer recoverInto("GetItem", &err)

	data, ok, err := a.client.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

// SetItem writes key to the client.
func (a *Async) SetItem(ctx context.Context, key, value string) (err error) {
	defer recoverInto("SetItem", &err)
	return a.client.Put(ctx, key, []byte(value))
}

// RemoveItem deletes key from the client.
func (a *Async) RemoveItem(ctx context.Context, key string) (err error) {
	defer recoverInto("RemoveItem", &err)
	return a.client.Delete(ctx, key)
}

// Client returns the wrapped client.
func (a *Async) Client() AsyncClient {
	return a.client
}
