// Package choices records which tone the user picked next to the tone the
// classifier suggested.
package choices

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors returned by stores.
var (
	ErrNotFound    = errors.New("choices: not found")
	ErrInvalid     = errors.New("choices: user tone required")
	ErrStoreClosed = errors.New("choices: store closed")
)

// Choice is one recorded decision.
type Choice struct {
	ID string `json:"id"`

	// UserTone is the tone the user had selected.
	UserTone string `json:"userTone"`

	// AITone is the tone the classifier suggested, empty when it named none.
	AITone string `json:"aiTone"`

	// AIText is the raw classifier answer.
	AIText   string `json:"aiText,omitempty"`
	Provider string `json:"provider,omitempty"`
	Mode     string `json:"mode,omitempty"`

	// ImageRef points at the stored snapshot, if one was uploaded.
	ImageRef string `json:"imageRef,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Agreed reports whether the user and the classifier picked the same tone.
func (c *Choice) Agreed() bool {
	return c.AITone != "" && strings.EqualFold(c.UserTone, c.AITone)
}

// Store persists choices.
type Store interface {
	// Save assigns an ID and timestamp when unset and stores the choice.
	Save(ctx context.Context, c *Choice) error

	// Get returns the choice with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Choice, error)

	// List returns up to limit choices, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Choice, error)

	Close() error
}

// prepare validates c and fills in its ID and timestamp.
func prepare(c *Choice, now time.Time) error {
	if strings.TrimSpace(c.UserTone) == "" {
		return ErrInvalid
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = now.UTC()
	}
	return nil
}
