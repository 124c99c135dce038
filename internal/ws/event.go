package ws

import "time"

// Tables carried on the change feed.
const (
	TableProducts  = "products"
	TableSales     = "sales"
	TableSaleItems = "sale_items"
)

// Event types.
const (
	EventChange     = "change"
	EventUserStatus = "user_status_update"
)

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Event is one message on the feed. Change events are scoped to a tenant and
// a table; presence events go to every client.
type Event struct {
	Type     string      `json:"type"`
	Table    string      `json:"table,omitempty"`
	Action   Action      `json:"action,omitempty"`
	TenantID string      `json:"tenant_id,omitempty"`
	Record   interface{} `json:"record,omitempty"`
	Actor    *Actor      `json:"actor,omitempty"`
	Message  string      `json:"message,omitempty"`
	At       time.Time   `json:"at"`
}

// Actor identifies the user behind a change.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Change builds a change event for table.
func Change(tenantID, table string, action Action, record interface{}, actor *Actor) Event {
	return Event{
		Type:     EventChange,
		Table:    table,
		Action:   action,
		TenantID: tenantID,
		Record:   record,
		Actor:    actor,
	}
}

// IsDataChange reports whether e mutates one of the feed tables.
func (e Event) IsDataChange() bool {
	if e.Type != EventChange {
		return false
	}
	switch e.Table {
	case TableProducts, TableSales, TableSaleItems:
		return true
	}
	return false
}
