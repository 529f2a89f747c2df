package domain

import "github.com/google/uuid"

// Keyed is implemented by models whose rows may carry the idempotency key of
// the request that created them.
type Keyed interface {
	RequestKey() (uuid.UUID, bool)
}

// KeyColumn is the column holding the idempotency key on every keyed table.
const KeyColumn = "request_uuid"

// StoredKey returns the persisted form of an idempotency key.
func StoredKey(k uuid.UUID) *string {
	s := k.String()
	return &s
}

func parseStoredKey(s *string) (uuid.UUID, bool) {
	if s == nil {
		return uuid.Nil, false
	}
	k, err := uuid.Parse(*s)
	if err != nil {
		return uuid.Nil, false
	}
	return k, true
}

// RequestKey implements Keyed.
func (r *Recipe) RequestKey() (uuid.UUID, bool) { return parseStoredKey(r.RequestUUID) }

// RequestKey implements Keyed.
func (ri *RecipeIngredient) RequestKey() (uuid.UUID, bool) { return parseStoredKey(ri.RequestUUID) }

// RequestKey implements Keyed.
func (c *Comment) RequestKey() (uuid.UUID, bool) { return parseStoredKey(c.RequestUUID) }
