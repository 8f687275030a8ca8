package insight

import (
	"context"
	"log/slog"

	"hims.app/advisor/internal/model"
	"hims.app/advisor/internal/tabstore"
)

type Publisher interface {
	Publish()
}

// HealthMirror copies every health snapshot a tab receives into the tab store
// and signals the tab's health-updated bus, so regions such as navigation
// badges can read it without subscribing to the cache.
type HealthMirror struct {
	store   tabstore.Store
	updated Publisher
}

func NewHealthMirror(store tabstore.Store, updated Publisher) *HealthMirror {
	return &HealthMirror{store: store, updated: updated}
}

// Deliver has the shape of a HealthCache subscriber.
func (m *HealthMirror) Deliver(h *model.HealthSnapshot) {
	if h == nil {
		return
	}
	if err := tabstore.PutJSON(m.store, tabstore.KeyHealth, h); err != nil {
		slog.WarnContext(context.Background(), "failed to mirror health snapshot", "error", err)
		return
	}
	m.updated.Publish()
}

func ReadMirroredHealth(store tabstore.Store) (*model.HealthSnapshot, bool) {
	var h model.HealthSnapshot
	found, err := tabstore.GetJSON(store, tabstore.KeyHealth, &h)
	if err != nil {
		slog.WarnContext(context.Background(), "discarding unreadable health mirror", "error", err)
		store.Delete(tabstore.KeyHealth)
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &h, true
}
