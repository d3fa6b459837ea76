package config

import "testing"

func TestValidateDefaultConfigNeedsDatabaseURL(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing database_url")
	}
	cfg.Store.DatabaseURL = "postgres://localhost/pdfsvc"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidatePoolMinGreaterThanMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.DatabaseURL = "postgres://localhost/pdfsvc"
	cfg.Pool.Min = 10
	cfg.Pool.Max = 5
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when pool.min > pool.max")
	}
}

func TestValidateInvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.DatabaseURL = "postgres://localhost/pdfsvc"
	cfg.Logging.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url     string
		wantErr bool
	}{
		{"", true},
		{"not a url", true},
		{"ftp://example.com", true},
		{"http://example.com", false},
		{"https://example.com/page", false},
	}
	for _, c := range cases {
		err := ValidateURL(c.url)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateURL(%q): err=%v, wantErr=%v", c.url, err, c.wantErr)
		}
	}
}
