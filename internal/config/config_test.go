package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAGNETITE_PRIMARY.ENV", "local")
	t.Setenv("MAGNETITE_SERVER.PORT", "3000")
	t.Setenv("MAGNETITE_SERVER.READ_TIMEOUT", "5")
	t.Setenv("MAGNETITE_SERVER.WRITE_TIMEOUT", "5")
	t.Setenv("MAGNETITE_SERVER.IDLE_TIMEOUT", "60")
	t.Setenv("MAGNETITE_DATABASE.DRIVER", "sqlite")
	t.Setenv("MAGNETITE_DATABASE.PATH", "magnetite.db")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Cache.TTL != time.Minute {
		t.Fatalf("cache ttl = %s, want 1m", cfg.Cache.TTL)
	}
	if cfg.Cache.SweepInterval != time.Second {
		t.Fatalf("sweep interval = %s, want 1s", cfg.Cache.SweepInterval)
	}
	if cfg.Actor.QueueCapacity != 10 {
		t.Fatalf("queue capacity = %d, want 10", cfg.Actor.QueueCapacity)
	}
	if cfg.Observability.ServiceName != "magnetite" {
		t.Fatalf("service name = %q", cfg.Observability.ServiceName)
	}
	if cfg.Observability.Environment != "local" {
		t.Fatalf("environment = %q, want local", cfg.Observability.Environment)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Fatalf("ssl mode = %q, want disable", cfg.Database.SSLMode)
	}
}

func TestLoadConfigPartialBlockKeepsDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MAGNETITE_CACHE.TTL", "30s")
	t.Setenv("MAGNETITE_ACTOR.QUEUE_CAPACITY", "64")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Fatalf("cache ttl = %s, want 30s", cfg.Cache.TTL)
	}
	if cfg.Cache.SweepInterval != time.Second {
		t.Fatalf("sweep interval = %s, want default 1s", cfg.Cache.SweepInterval)
	}
	if cfg.Actor.QueueCapacity != 64 {
		t.Fatalf("queue capacity = %d, want 64", cfg.Actor.QueueCapacity)
	}
	if cfg.Actor.StoreTimeout != 5*time.Second {
		t.Fatalf("store timeout = %s, want default 5s", cfg.Actor.StoreTimeout)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "postgres without host",
			env:  map[string]string{"MAGNETITE_DATABASE.DRIVER": "postgres"},
			want: "config validation failed",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"MAGNETITE_DATABASE.DRIVER": "mysql"},
			want: "config validation failed",
		},
		{
			name: "zero queue",
			env:  map[string]string{"MAGNETITE_ACTOR.QUEUE_CAPACITY": "0"},
			want: "invalid actor config",
		},
		{
			name: "negative ttl",
			env:  map[string]string{"MAGNETITE_CACHE.TTL": "-1s"},
			want: "invalid cache config",
		},
		{
			name: "bad log level",
			env:  map[string]string{"MAGNETITE_OBSERVABILITY.LOGGING.LEVEL": "loud"},
			want: "invalid observability config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}
