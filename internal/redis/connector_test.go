package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/groupmark/internal/logger"
)

// unreachable points at a port nothing listens on.
func unreachable() Options {
	return Options{
		Addr:           "127.0.0.1:1",
		DialTimeout:    50 * time.Millisecond,
		ConnectTimeout: 300 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
		WarnAttempts:   1,
	}
}

func TestOptionsDefaults(t *testing.T) {
	o, err := Options{Addr: "localhost:6379"}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults() error = %v", err)
	}
	if o.ConnectTimeout != defaultConnectTimeout || o.PingTimeout != defaultPingTimeout {
		t.Errorf("timeouts = %v/%v, want defaults", o.ConnectTimeout, o.PingTimeout)
	}
	if o.PoolSize != defaultPoolSize || o.WarnAttempts != defaultWarnAttempts {
		t.Errorf("pool=%d warn=%d, want defaults", o.PoolSize, o.WarnAttempts)
	}

	o, err = Options{Addr: "x:1", RetryInterval: time.Minute, MaxWait: time.Second}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults() error = %v", err)
	}
	if o.MaxWait != time.Minute {
		t.Errorf("MaxWait = %v, want raised to RetryInterval", o.MaxWait)
	}
}

func TestOptionsRejects(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no address", Options{}},
		{"negative connect timeout", Options{Addr: "x:1", ConnectTimeout: -time.Second}},
		{"negative ping timeout", Options{Addr: "x:1", PingTimeout: -time.Second}},
		{"negative pool", Options{Addr: "x:1", PoolSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.withDefaults(); err == nil {
				t.Error("withDefaults() should fail")
			}
		})
	}
	if _, err := (Options{}).withDefaults(); !errors.Is(err, errNoAddr) {
		t.Errorf("empty address error = %v, want errNoAddr", err)
	}
}

func TestBackoffCaps(t *testing.T) {
	b := backoff{next: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.step(); got != w {
			t.Errorf("step %d = %v, want %v", i, got, w)
		}
	}
}

func TestDialGivesUp(t *testing.T) {
	start := time.Now()
	client, err := Dial(context.Background(), unreachable(), logger.New("error", false))
	if err == nil {
		_ = client.Close()
		t.Fatal("Dial() should fail when nothing listens on the address")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Dial() took %v, want it bounded by ConnectTimeout", elapsed)
	}
}

func TestDialHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := unreachable()
	opts.ConnectTimeout = time.Minute
	if _, err := Dial(ctx, opts, logger.New("error", false)); err == nil {
		t.Fatal("Dial() should fail on a cancelled context")
	}
}
