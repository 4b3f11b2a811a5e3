package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kschaper/page-guard/config"
)

func TestLoadEnv(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"overlay": func(t *testing.T) {
			t.Setenv("PAGEGUARD_ADDR", ":8080")
			t.Setenv("PAGEGUARD_PAGE_RESTRICTED", "members.html")
			t.Setenv("PAGEGUARD_PROVIDER_PROJECT_ID", "social-green")
			t.Setenv("PAGEGUARD_SECURE_COOKIE", "true")

			cfg := config.NewConfig()
			require.NoError(t, config.LoadEnv(cfg))

			assert.Equal(t, ":8080", cfg.Addr)
			assert.Equal(t, "members.html", cfg.Pages.Restricted)
			assert.Equal(t, "login.html", cfg.Pages.Login)
			assert.Equal(t, "social-green", cfg.Provider.ProjectID)
			assert.True(t, cfg.SecureCookie)
		},
		"defaults kept": func(t *testing.T) {
			cfg := config.NewConfig()
			require.NoError(t, config.LoadEnv(cfg))
			assert.Equal(t, config.NewConfig(), cfg)
		},
		"bad bool": func(t *testing.T) {
			t.Setenv("PAGEGUARD_SECURE_COOKIE", "maybe")
			assert.Error(t, config.LoadEnv(config.NewConfig()))
		},
	}

	for n, c := range cases {
		t.Run(n, c)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.NewConfig()
		cfg.Provider.ProjectID = "social-green"
		return cfg
	}
	key := strings.Repeat("k", config.KeyLength)

	cases := map[string]struct {
		mutate  func(cfg *config.Config)
		wantErr bool
	}{
		"token mode":              {mutate: func(*config.Config) {}},
		"missing project id":      {mutate: func(cfg *config.Config) { cfg.Provider.ProjectID = "" }, wantErr: true},
		"missing page":            {mutate: func(cfg *config.Config) { cfg.Pages.Home = "" }, wantErr: true},
		"session name with space": {mutate: func(cfg *config.Config) { cfg.SessionName = "page guard" }, wantErr: true},
		"empty token cookie":      {mutate: func(cfg *config.Config) { cfg.IDTokenCookie = "" }, wantErr: true},
		"unknown mode":            {mutate: func(cfg *config.Config) { cfg.SessionMode = "header" }, wantErr: true},
		"cookie mode without keys": {
			mutate:  func(cfg *config.Config) { cfg.SessionMode = config.SessionModeCookie },
			wantErr: true,
		},
		"cookie mode with keys": {
			mutate: func(cfg *config.Config) {
				cfg.SessionMode = config.SessionModeCookie
				cfg.HashKey, cfg.BlockKey = key, key
			},
		},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			cfg := valid()
			c.mutate(cfg)
			err := cfg.Validate()
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExpectedIssuer(t *testing.T) {
	p := config.Provider{ProjectID: "social-green"}
	assert.Equal(t, "https://securetoken.google.com/social-green", p.ExpectedIssuer())

	p.Issuer = "https://issuer.example.com"
	assert.Equal(t, "https://issuer.example.com", p.ExpectedIssuer())
}
