package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is a shop that completed the OAuth install. One row per shop domain.
type Store struct {
	ID          string      `json:"id" gorm:"primaryKey;size:36"`
	ShopDomain  string      `json:"shop_domain" gorm:"uniqueIndex;not null"`
	AccessToken string      `json:"-" gorm:"not null"`
	Scope       string      `json:"scope"`
	Status      StoreStatus `json:"status" gorm:"default:ACTIVE"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type StoreStatus string

const (
	StoreStatusActive  StoreStatus = "ACTIVE"
	StoreStatusRevoked StoreStatus = "REVOKED"
)

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
