package alerts

import (
	"sync"

	"github.com/c360studio/agentconsole/client"
)

// Collection is the live alert view fed by the push stream. Alerts are
// upserted by id: a resolved event replaces its firing predecessor rather
// than accumulating next to it.
type Collection struct {
	mu    sync.RWMutex
	byID  map[string]int
	order []client.Alert
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{byID: make(map[string]int)}
}

// Upsert inserts a new alert or replaces the record sharing its id.
// First-arrival order is preserved across replacements.
func (c *Collection) Upsert(alert client.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.byID[alert.ID]; ok {
		c.order[idx] = alert
		return
	}
	c.byID[alert.ID] = len(c.order)
	c.order = append(c.order, alert)
}

// Get returns the alert with the given id.
func (c *Collection) Get(id string) (client.Alert, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byID[id]
	if !ok {
		return client.Alert{}, false
	}
	return c.order[idx], true
}

// List returns a copy of all alerts in first-arrival order.
func (c *Collection) List() []client.Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]client.Alert, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of distinct alerts held.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Summary computes aggregate counts over the current collection. It mirrors
// the shape the hook service reports so local and remote summaries are
// interchangeable.
func (c *Collection) Summary() client.AlertSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sum := client.AlertSummary{
		BySeverity: make(map[client.Severity]int),
		ByStatus:   make(map[client.AlertStatus]int),
	}
	for _, a := range c.order {
		sum.Total++
		sum.BySeverity[a.Severity]++
		sum.ByStatus[a.Status]++
		if a.Status == client.AlertFiring {
			sum.Firing++
		}
	}
	return sum
}
