package domain

// Channel identifies how the customer receives the order.
type Channel string

const (
	ChannelPickup   Channel = "pickup"
	ChannelDelivery Channel = "delivery"
	ChannelDineIn   Channel = "dine-in"
)

// PaymentMethod identifies how the order is paid.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentPix   PaymentMethod = "pix"
	PaymentOther PaymentMethod = "other"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// ActiveStatuses are the states the POS panel keeps a standing query on.
var ActiveStatuses = []Status{StatusPending, StatusApproved, StatusPreparing, StatusReady}

// IsTerminal reports whether no further transition is accepted from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusPreparing, StatusReady, StatusCompleted, StatusRejected:
		return true
	}
	return false
}
