package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			APIKey: "test-key",
			Model:  "text-embedding-3-small",
		},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingEmbeddingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}
}

func TestValidate_OverlapTooLarge(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"overlap equals size", 100, 100, true},
		{"overlap at half size", 300, 150, true},
		{"overlap above half size", 300, 200, true},
		{"overlap below half size", 300, 149, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Chunking = ChunkingConfig{Size: tc.size, Overlap: tc.overlap}

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("chunking defaults = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.SimilarityThreshold != 0.7 {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.RateLimit.PerMinute != 60 || cfg.RateLimit.PerHour != 1000 {
		t.Errorf("ratelimit defaults = %+v", cfg.RateLimit)
	}
	if cfg.Storage.Collection != "documents" || cfg.Storage.KeyPrefix != "docqa:" {
		t.Errorf("storage defaults = %+v", cfg.Storage)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http defaults = %+v", cfg.HTTP)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Retrieval: RetrievalConfig{TopK: 8, SimilarityThreshold: 0.5},
		Chunking:  ChunkingConfig{Size: 500, Overlap: 50},
	}
	cfg.ApplyDefaults()

	if cfg.Retrieval.TopK != 8 || cfg.Retrieval.SimilarityThreshold != 0.5 {
		t.Errorf("retrieval overridden = %+v", cfg.Retrieval)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking overridden = %+v", cfg.Chunking)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "secret123")

	in := []byte("api_key: ${DOCQA_TEST_KEY}\nmodel: ${DOCQA_TEST_MODEL:-fallback-model}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret123\nmodel: fallback-model\n"
	if out != want {
		t.Errorf("expanded = %q, want %q", out, want)
	}
}

func TestGetEnv(t *testing.T) {
	old, had := os.LookupEnv("ENV")
	defer func() {
		if had {
			os.Setenv("ENV", old)
		} else {
			os.Unsetenv("ENV")
		}
	}()

	os.Unsetenv("ENV")
	if got := GetEnv(); got != "local" {
		t.Errorf("default env = %q", got)
	}

	os.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("env = %q", got)
	}
}
