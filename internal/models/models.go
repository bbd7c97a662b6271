package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Enabled      bool      `gorm:"not null;default:true"    json:"enabled"`
	Roles        []Role    `gorm:"many2many:user_roles"     json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Role struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"uniqueIndex;not null"     json:"name"`
	Description string `json:"description"`
}

// Session is one row per issued token. Presence of an unexpired row is the
// single authority on whether a token is still accepted; logout deletes it.
type Session struct {
	Token     string    `gorm:"primaryKey"     json:"token"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"       json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// APIClient is a machine caller on the X-API-Key ingestion path. It is a
// separate trust domain from user tokens and never resolves to roles.
type APIClient struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null"                 json:"name"`
	APIKey    string    `gorm:"uniqueIndex;not null"     json:"api_key"`
	Active    bool      `gorm:"not null;default:true"    json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// System is a monitored host registered by a user. Metrics reference it by
// its id in the ingestion path.
type System struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID     uint      `gorm:"index;not null"           json:"owner_id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Metric struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SystemID   string    `gorm:"index;not null"           json:"system_id"`
	Name       string    `gorm:"not null"                 json:"name"`
	Value      float64   `gorm:"not null"                 json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `gorm:"index"                    json:"recorded_at"`
}

type Alert struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SystemID     string    `gorm:"index;not null"           json:"system_id"`
	Severity     string    `gorm:"not null"                 json:"severity"`
	Message      string    `gorm:"not null"                 json:"message"`
	Acknowledged bool      `gorm:"default:false"            json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}
