package social

import "context"

// Reaction kinds. Each kind keeps its own membership row and its own
// denormalized counter on the content.
const (
	KindLike     = "like"
	KindFavorite = "favorite"
)

// Store tracks per-user reaction membership. Toggle flips the membership
// for (userID, contentID, kind) and keeps the content's counter in step,
// returning the new state and the updated counter value.
type Store interface {
	Toggle(ctx context.Context, userID, contentID, kind string) (active bool, count int, err error)
	Has(ctx context.Context, userID, contentID, kind string) (bool, error)
	// ListByUser returns the content ids the user has the given reaction
	// on, most recently added first. Backs the favorites screen.
	ListByUser(ctx context.Context, userID, kind string) ([]string, error)
}
