package pushsub

import (
	"runtime"
	"time"

	"github.com/jwalitptl/clinic-booking/internal/agentstate"
	"github.com/jwalitptl/clinic-booking/internal/model"
)

// StateRegistry keeps the registration in the agent state file.
type StateRegistry struct {
	store    *agentstate.Store
	platform string
	endpoint string
	now      func() time.Time
}

// NewStateRegistry registers this device under runtime.GOOS. endpoint is
// recorded as the delivery address when not empty.
func NewStateRegistry(store *agentstate.Store, endpoint string) *StateRegistry {
	return &StateRegistry{
		store:    store,
		platform: runtime.GOOS,
		endpoint: endpoint,
		now:      time.Now,
	}
}

func (r *StateRegistry) Current() (*model.PushSubscription, error) {
	st, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	return st.PushSubscription, nil
}

func (r *StateRegistry) Register(channel string) (*model.PushSubscription, error) {
	var sub *model.PushSubscription
	err := r.store.Update(func(st *agentstate.State) error {
		sub = &model.PushSubscription{
			DeviceID:  st.DeviceID,
			Platform:  r.platform,
			Channel:   channel,
			Endpoint:  r.endpoint,
			CreatedAt: r.now().UTC(),
		}
		st.PushSubscription = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *StateRegistry) Unregister() error {
	return r.store.Update(func(st *agentstate.State) error {
		st.PushSubscription = nil
		return nil
	})
}
