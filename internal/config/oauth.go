package config

import (
	"log"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
)

// SetupOAuth enregistre les providers configurés et partage le store de
// session avec gothic. Retourne le nombre de providers actifs.
func SetupOAuth(cfg *Config, store sessions.Store) int {
	gothic.Store = store

	var providers []goth.Provider

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.BaseURL+"/api/auth/google/callback",
			"email", "profile",
		))
		log.Println("✅ Google OAuth activé")
	}

	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(
			cfg.FacebookClientID,
			cfg.FacebookClientSecret,
			cfg.BaseURL+"/api/auth/facebook/callback",
			"email",
		))
		log.Println("✅ Facebook OAuth activé")
	}

	if len(providers) == 0 {
		log.Println("⚠️ Aucun provider OAuth configuré")
		return 0
	}

	goth.UseProviders(providers...)
	log.Printf("✅ %d OAuth provider(s) initialisé(s)", len(providers))
	return len(providers)
}
