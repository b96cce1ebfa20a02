package config

import (
	"fmt"

	supa "github.com/supabase-community/supabase-go"
)

// NewSupabaseClient initializes the Supabase client used for both report
// persistence (PostgREST) and media staging (storage buckets).
func NewSupabaseClient(settings Settings) (*supa.Client, error) {
	client, err := supa.NewClient(settings.SupabaseURL, settings.SupabaseServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("init supabase client: %w", err)
	}
	return client, nil
}
