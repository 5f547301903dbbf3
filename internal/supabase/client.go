package supabase

import (
	"github.com/supabase-community/supabase-go"
	"interior-design-backend/internal/config"
)

type Client struct {
	Supabase *supabase.Client
	Config   *config.SupabaseConfig
}

func NewClient(cfg *config.SupabaseConfig) (*Client, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.Key(), nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}
