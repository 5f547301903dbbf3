package models

import (
	"encoding/json"
	"time"
)

const (
	ImageKindOriginal  = "original"
	ImageKindProcessed = "processed"
)

type Project struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"userId"`
	Name          string          `db:"name" json:"name"`
	DesignOptions json.RawMessage `db:"design_options" json:"designOptions,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

type Image struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	URL       string    `db:"url" json:"url"`
	Kind      string    `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ProjectImage struct {
	ProjectID string `db:"project_id"`
	ImageID   string `db:"image_id"`
	Position  int    `db:"position"`
}
