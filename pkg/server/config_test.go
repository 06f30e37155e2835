package server

import (
	"testing"
	"time"

	"github.com/chatwire/chatwire/pkg/protocol"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Run("nil_config", func(t *testing.T) {
		srv := New(nil)
		cfg := srv.Config()
		if cfg.Addr != ":4040" {
			t.Fatalf("Addr = %q, want :4040", cfg.Addr)
		}
		if cfg.MaxPayload != protocol.DefaultMaxPayload {
			t.Fatalf("MaxPayload = %d, want %d", cfg.MaxPayload, protocol.DefaultMaxPayload)
		}
		if cfg.OutboxDepth != 256 {
			t.Fatalf("OutboxDepth = %d, want 256", cfg.OutboxDepth)
		}
		if cfg.RegisterTimeout != 30*time.Second {
			t.Fatalf("RegisterTimeout = %v, want 30s", cfg.RegisterTimeout)
		}
	})

	t.Run("partial_config_backfilled", func(t *testing.T) {
		srv := New(&Config{Addr: "127.0.0.1:9"})
		cfg := srv.Config()
		if cfg.Addr != "127.0.0.1:9" {
			t.Fatalf("Addr = %q, want the provided address", cfg.Addr)
		}
		if cfg.MaxPayload != protocol.DefaultMaxPayload {
			t.Fatalf("MaxPayload = %d, want backfilled default", cfg.MaxPayload)
		}
		if cfg.WriteTimeout != 10*time.Second {
			t.Fatalf("WriteTimeout = %v, want backfilled 10s", cfg.WriteTimeout)
		}
	})

	t.Run("max_payload_clamped", func(t *testing.T) {
		srv := New(&Config{MaxPayload: 1 << 20})
		if got := srv.Config().MaxPayload; got != protocol.MaxWirePayload {
			t.Fatalf("MaxPayload = %d, want clamped to %d", got, protocol.MaxWirePayload)
		}
	})

	t.Run("caller_config_untouched", func(t *testing.T) {
		mine := &Config{Addr: "127.0.0.1:9"}
		New(mine)
		if mine.MaxPayload != 0 {
			t.Fatal("New modified the caller's config")
		}
	})

	t.Run("negative_timeout_preserved", func(t *testing.T) {
		srv := New(&Config{RegisterTimeout: -1})
		if srv.Config().RegisterTimeout != -1 {
			t.Fatal("negative RegisterTimeout was backfilled; it must stay disabled")
		}
	})
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig().WithAddr("127.0.0.1:1234")
	clone := cfg.Clone()
	clone.Addr = ":0"
	if cfg.Addr != "127.0.0.1:1234" {
		t.Fatal("mutating the clone changed the original")
	}

	var nilCfg *Config
	if nilCfg.Clone() != nil {
		t.Fatal("Clone of nil config should be nil")
	}
}
