package serial

import (
	"testing"
	"time"
)

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"500ms (valid)", 500 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"250ns (not multiple of 100ms)", 250 * time.Nanosecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			opt := WithReadTimeout(tt.timeout)
			err := opt(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestReadTimeoutTenths(t *testing.T) {
	config := DefaultConfig()
	if got := config.readTimeoutTenths(); got != 0 {
		t.Errorf("default VTIME = %d, want 0", got)
	}
	if err := WithReadTimeout(2500 * time.Millisecond)(&config); err != nil {
		t.Fatalf("WithReadTimeout failed: %v", err)
	}
	if got := config.readTimeoutTenths(); got != 25 {
		t.Errorf("VTIME = %d, want 25", got)
	}
}

func TestWithInitialLines(t *testing.T) {
	tests := []struct {
		name  string
		opt   func(bool) Option
		field func(Config) *bool
	}{
		{"DTR", WithInitialDTR, func(c Config) *bool { return c.InitialDTR }},
		{"RTS", WithInitialRTS, func(c Config) *bool { return c.InitialRTS }},
	}

	for _, tt := range tests {
		for _, state := range []bool{true, false} {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				if tt.field(config) != nil {
					t.Fatalf("initial %s should be unset by default", tt.name)
				}
				if err := tt.opt(state)(&config); err != nil {
					t.Fatalf("WithInitial%s(%v) returned error: %v", tt.name, state, err)
				}
				got := tt.field(config)
				if got == nil || *got != state {
					t.Errorf("initial %s = %v, want %v", tt.name, got, state)
				}
			})
		}
	}
}

func TestApply(t *testing.T) {
	config, err := Apply(WithBaudRate(9600), WithExclusive(false))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if config.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", config.BaudRate)
	}
	if config.Exclusive {
		t.Error("Exclusive should be false")
	}

	if _, err := Apply(WithBaudRate(9600), WithDataBits(4)); err != ErrInvalidConfig {
		t.Errorf("Apply with bad data bits error = %v, want %v", err, ErrInvalidConfig)
	}
}
