package payment

import (
	"time"

	"gorm.io/datatypes"
)

// Payment statuses. COMPLETED and FAILED come from gateway callbacks;
// REFUNDED is set when a paid booking is cancelled.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusRefunded   = "REFUNDED"
)

// Payment is one-to-one with its booking. A failed attempt is retried by
// rotating the order id on the same row, never by inserting a second one.
type Payment struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BookingID uint `gorm:"not null;uniqueIndex" json:"booking_id"`

	// OrderID is the value sent to the gateway as oid and echoed back in
	// the callback. Rotated on every initiate.
	OrderID string `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_id"`

	Amount   float64 `gorm:"not null" json:"amount"`
	Currency string  `gorm:"type:varchar(8);not null;default:'MAD'" json:"currency"`
	Status   string  `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`

	GatewayResponseCode  string     `gorm:"type:varchar(8)" json:"gateway_response_code,omitempty"`
	GatewayResponseMsg   string     `gorm:"type:varchar(255)" json:"gateway_response_msg,omitempty"`
	GatewayTransactionID string     `gorm:"type:varchar(64)" json:"gateway_transaction_id,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GatewayCallback is the append-only ledger of every callback received.
// The unique index on (order_id, outcome) is what makes replayed callbacks
// harmless: the second insert fails and processing stops there.
type GatewayCallback struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	OrderID      string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_callbacks_order_outcome" json:"order_id"`
	Outcome      string         `gorm:"type:varchar(16);not null;uniqueIndex:idx_callbacks_order_outcome" json:"outcome"`
	ResponseCode string         `gorm:"type:varchar(8)" json:"response_code"`
	RawParams    datatypes.JSON `gorm:"type:jsonb" json:"raw_params"`
	ReceivedAt   time.Time      `gorm:"autoCreateTime" json:"received_at"`
}

// CheckoutForm is everything the browser needs to hand the customer over
// to the gateway: the action URL plus the signed hidden fields.
type CheckoutForm struct {
	GatewayURL string            `json:"gateway_url"`
	Fields     map[string]string `json:"fields"`
}

// CallbackResult tells the handler where to send the customer afterwards.
type CallbackResult struct {
	Approved      bool
	BookingNumber string
	ResponseCode  string
	Replayed      bool
}
