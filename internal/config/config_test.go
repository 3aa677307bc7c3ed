package config

import (
	"os"
	"testing"
	"time"
)

// unsetenv clears k for the duration of the test.
func unsetenv(t *testing.T, k string) {
	t.Helper()
	t.Setenv(k, "")
	_ = os.Unsetenv(k)
}

func TestLoadAPI_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE", "CACHE_TTL", "WRITE_LIMIT_PER_MIN", "TRUST_PROXY"} {
		unsetenv(t, k)
	}

	c, err := LoadAPI()
	if err != nil {
		t.Fatalf("LoadAPI: %v", err)
	}
	if c.Port != "8081" {
		t.Fatalf("port=%q", c.Port)
	}
	if c.Store != StoreMemory {
		t.Fatalf("store=%q", c.Store)
	}
	if c.CacheTTL != 5*time.Minute {
		t.Fatalf("cache ttl=%s", c.CacheTTL)
	}
	if c.TrustProxy {
		t.Fatalf("X-Forwarded-For must not be trusted by default")
	}
}

func TestLoadAPI_PostgresNeedsDSN(t *testing.T) {
	t.Setenv("STORE", StorePostgres)
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadAPI(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestAPIValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     API
		wantErr bool
	}{
		{"memory", API{Store: StoreMemory}, false},
		{"postgres", API{Store: StorePostgres, DatabaseURL: "postgres://x"}, false},
		{"unknown store", API{Store: "sqlite"}, true},
		{"negative limit", API{Store: StoreMemory, WriteLimitPerMin: -1}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadWeb_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("API_URL", "http://api:8081")
	t.Setenv("API_TIMEOUT", "750ms")

	c, err := LoadWeb()
	if err != nil {
		t.Fatalf("LoadWeb: %v", err)
	}
	if c.Port != "9000" || c.APIURL != "http://api:8081" || c.APITimeout != 750*time.Millisecond {
		t.Fatalf("cfg=%+v", c)
	}
}
