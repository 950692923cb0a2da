package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, name := range []string{"PORT", "ADMIN_USER", "ADMIN_PASS", "ADMIN_PORT"} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, "change-me", cfg.Admin.Password)
	assert.Equal(t, "Restricted", cfg.Admin.Realm)
	assert.Equal(t, "data", cfg.Store.DataDir)
	assert.Equal(t, "submissions.csv", cfg.Store.FileName)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "consultlog", cfg.Observability.ServiceName)
	assert.Nil(t, cfg.O3())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONSULTLOG_PRIMARY__ENV", "production")
	t.Setenv("CONSULTLOG_SERVER__PORT", "8081")
	t.Setenv("CONSULTLOG_ADMIN__USERNAME", "root")
	t.Setenv("CONSULTLOG_ADMIN__PASSWORD", "s3:cr:et")
	t.Setenv("CONSULTLOG_STORE__DATA_DIR", "/var/lib/consultlog")
	t.Setenv("CONSULTLOG_STORAGE__O3__ENDPOINT", "https://o3.example.com")
	t.Setenv("CONSULTLOG_STORAGE__O3__BUCKET", "consultations")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "root", cfg.Admin.Username)
	assert.Equal(t, "s3:cr:et", cfg.Admin.Password)
	assert.Equal(t, "/var/lib/consultlog", cfg.Store.DataDir)
	assert.Equal(t, "submissions.csv", cfg.Store.FileName)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "production", cfg.Observability.Environment)
	require.NotNil(t, cfg.O3())
	assert.Equal(t, "consultations", cfg.O3().Bucket)
}

func TestLoad_RejectsBadLogLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONSULTLOG_OBSERVABILITY__LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "4000")
	t.Setenv("ADMIN_USER", "ops")
	t.Setenv("ADMIN_PASS", "hunter2")
	t.Setenv("ADMIN_PORT", "3001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, "ops", cfg.Admin.Username)
	assert.Equal(t, "hunter2", cfg.Admin.Password)
	assert.Equal(t, ":3001", cfg.Server.AdminListen)
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADMIN_PASS", "legacy")
	t.Setenv("CONSULTLOG_ADMIN__PASSWORD", "current")
	t.Setenv("PORT", "4000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "current", cfg.Admin.Password)
	assert.Equal(t, "4000", cfg.Server.Port)
}

func TestStaticDirExposesStore(t *testing.T) {
	cases := []struct {
		static, data string
		exposed      bool
	}{
		{"", "data", false},
		{".", "data", true},
		{"public", "data", false},
		{"site", "site/data", true},
		{"site", "site", true},
		{"site", "site-data", false},
		{"site/public", "site", false},
	}
	for _, tc := range cases {
		cfg := Default()
		cfg.Server.StaticDir = tc.static
		cfg.Store.DataDir = tc.data
		err := cfg.CheckStaticDir()
		if tc.exposed {
			assert.ErrorIs(t, err, ErrStaticExposesStore, "static=%q data=%q", tc.static, tc.data)
		} else {
			assert.NoError(t, err, "static=%q data=%q", tc.static, tc.data)
		}
	}
}

func TestLoad_RejectsStaticDirOverStore(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONSULTLOG_SERVER__STATIC_DIR", ".")

	_, err := Load()
	require.ErrorIs(t, err, ErrStaticExposesStore)
}
