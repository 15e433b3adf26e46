package models

import "time"

type Customer struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Email    string  `json:"email" gorm:"uniqueIndex;not null"`
	Phone    *string `json:"phone,omitempty" gorm:"uniqueIndex"`
	FullName string  `json:"full_name" gorm:"not null"`
	Company  string  `json:"company,omitempty"`
	Position string  `json:"position,omitempty"`
	Address  string  `json:"address,omitempty"`
	City     string  `json:"city,omitempty"`
	Country  string  `json:"country,omitempty"`
	Language string  `json:"language" gorm:"default:vi"`
	IsActive bool    `json:"is_active" gorm:"default:true"`

	Tags     []string       `json:"tags" gorm:"serializer:json"`
	Metadata map[string]any `json:"metadata" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
