package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"puzzlepals/internal/clock"
	"puzzlepals/internal/models"
)

// SnapshotCollection holds one snapshot document per identity
const SnapshotCollection = "snapshots"

// ErrUnsupportedSchema is returned for snapshots written by a newer schema
var ErrUnsupportedSchema = errors.New("unsupported snapshot schema")

// Client reads and writes identity snapshots through a DocumentStore
type Client struct {
	store DocumentStore
	clock clock.Clock
}

// NewClient creates a snapshot client over store
func NewClient(store DocumentStore, clk clock.Clock) *Client {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Client{store: store, clock: clk}
}

// Ping probes the underlying store
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// PushSnapshot upserts snap as the identity's snapshot. CreatedAt is kept from
// any existing document; LastLogin and LastUpdate are refreshed.
func (c *Client) PushSnapshot(ctx context.Context, snap models.RemoteSnapshot) (*models.RemoteSnapshot, error) {
	if models.IsDefaultIdentity(snap.IdentityID) {
		return nil, fmt.Errorf("refusing to push snapshot for the default identity")
	}

	now := c.clock.Now().UTC()
	existing, err := c.FetchSnapshot(ctx, snap.IdentityID)
	switch {
	case err == nil:
		snap.CreatedAt = existing.CreatedAt
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupportedSchema):
		snap.CreatedAt = now
	default:
		return nil, err
	}
	snap.SchemaVersion = models.SnapshotSchemaVersion
	snap.LastLogin = now
	snap.LastUpdate = now

	doc, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.store.Upsert(ctx, SnapshotCollection, string(snap.IdentityID), doc); err != nil {
		return nil, fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return &snap, nil
}

// FetchSnapshot returns the identity's snapshot or ErrNotFound
func (c *Client) FetchSnapshot(ctx context.Context, id models.IdentityID) (*models.RemoteSnapshot, error) {
	doc, err := c.store.Find(ctx, SnapshotCollection, string(id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find snapshot: %w", err)
	}

	var snap models.RemoteSnapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.SchemaVersion > models.SnapshotSchemaVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedSchema, snap.SchemaVersion)
	}
	return &snap, nil
}

// DeleteSnapshot removes the identity's snapshot
func (c *Client) DeleteSnapshot(ctx context.Context, id models.IdentityID) error {
	if err := c.store.Delete(ctx, SnapshotCollection, string(id)); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying store
func (c *Client) Close() error {
	return c.store.Close()
}
