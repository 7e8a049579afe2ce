package models

import (
	"time"
)

const (
	RoleBuyer = "Buyer"
	RoleAdmin = "Admin"
)

// Order and payment status values keep the legacy numbering stored in the
// database: 1 = created, 2 = paid/processing.
const (
	OrderStatusCreated = 1
	OrderStatusPaid    = 2

	PaymentStatusCaptured = 2
)

type User struct {
	ID           uint      `gorm:"primaryKey"           json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash []byte    `gorm:"not null"             json:"-"`
	PasswordSalt []byte    `gorm:"not null"             json:"-"`
	Role         string    `gorm:"not null"             json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"not null"   json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"   json:"price"`
	Count       uint    `json:"count"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                                       json:"id"`
	UserID    uint `gorm:"index;uniqueIndex:idx_cart_user_product;not null" json:"user_id"`
	ProductID uint `gorm:"uniqueIndex:idx_cart_user_product;not null"       json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"                       json:"quantity"`
}

type Order struct {
	ID         uint        `gorm:"primaryKey"     json:"id"`
	UserID     uint        `gorm:"index;not null" json:"user_id"`
	TotalPrice float64     `gorm:"not null"       json:"total_price"`
	Status     int         `gorm:"not null"       json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	Items      []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"     json:"id"`
	OrderID   uint    `gorm:"index;not null" json:"order_id"`
	ProductID uint    `gorm:"not null"       json:"product_id"`
	Quantity  uint    `gorm:"not null"       json:"quantity"`
	UnitPrice float64 `gorm:"not null"       json:"unit_price"`
}

type Payment struct {
	ID                 uint      `gorm:"primaryKey"           json:"id"`
	OrderID            uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	Amount             float64   `gorm:"not null"             json:"amount"`
	PaymentMethod      string    `gorm:"not null"             json:"payment_method"`
	Status             int       `gorm:"not null"             json:"status"`
	PaymentRefID       string    `json:"payment_ref_id"`
	PaymentRefResponse string    `gorm:"type:text"            json:"-"`
	PaymentDate        time.Time `json:"payment_date"`
}

type Shipment struct {
	ID             uint   `gorm:"primaryKey"           json:"id"`
	OrderID        uint   `gorm:"uniqueIndex;not null" json:"order_id"`
	RecipientName  string `gorm:"not null"             json:"recipient_name"`
	Phone          string `json:"phone"`
	Address1       string `gorm:"not null"             json:"address1"`
	Address2       string `json:"address2"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`
	Country        string `json:"country"`
	Carrier        string `gorm:"not null"             json:"carrier"`
	TrackingNumber string `gorm:"uniqueIndex;not null" json:"tracking_number"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	UserID    uint      `gorm:"index;not null"       json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	JwtID     string    `gorm:"not null"             json:"jwt_id"`
	IssuedAt  time.Time `gorm:"not null"             json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
	IsUsed    bool      `gorm:"default:false"        json:"is_used"`
	IsRevoked bool      `gorm:"default:false"        json:"is_revoked"`
}
