package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Message is the payload handed to the notification collaborator.
type Message struct {
	TeamID     snowflake.ID
	CustomerID snowflake.ID
	Kind       string
	Title      string
	Message    string
	Link       string
	Metadata   map[string]any
}

// Notifier writes a message to the outbox. tx may be an open transaction so the
// notification commits together with the change it announces; nil uses the service DB.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, msg Message) error
}

type Service interface {
	Notifier
	ListForCustomer(ctx context.Context, customerID snowflake.ID, limit int) ([]Notification, error)
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var (
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidTitle    = errors.New("invalid_title")
	ErrInvalidMessage  = errors.New("invalid_message")
)
