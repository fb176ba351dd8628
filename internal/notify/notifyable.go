package notify

import (
	"time"

	"github.com/angelmondragon/notifyd/pkg/enums"
)

// Notifyable is a host record that owns notifications. Email and phone are
// the fallback recipients applied just before validation.
type Notifyable interface {
	NotifyableType() string
	NotifyableID() string
	NotifyEmail() string
	NotifyPhone() string
	Notifications() *Collection
}

// DeliveryDefaults are per host type overrides of the global queue settings.
type DeliveryDefaults struct {
	UseQueue *bool
	Queue    string
	Wait     time.Duration
}

// DeliveryDefaulter is implemented by hosts that want different delivery
// defaults for a channel, e.g. every SMS for this type on queue "priority".
type DeliveryDefaulter interface {
	DeliveryDefaults(channel enums.Channel) DeliveryDefaults
}

// Collection is the notifications association of one host record.
type Collection struct {
	items []*Notification
}

// Add appends n to the collection.
func (c *Collection) Add(n *Notification) {
	if n == nil {
		return
	}
	c.items = append(c.items, n)
}

// All returns every notification, persisted or not.
func (c *Collection) All() []*Notification {
	if c == nil {
		return nil
	}
	return append([]*Notification(nil), c.items...)
}

// Pending returns notifications not yet written to the store.
func (c *Collection) Pending() []*Notification {
	if c == nil {
		return nil
	}
	var out []*Notification
	for _, n := range c.items {
		if !n.persisted {
			out = append(out, n)
		}
	}
	return out
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}
