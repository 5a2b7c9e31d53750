package utils

import (
	"net/http/httptest"
	"testing"
)

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"127.0.0.1/32", " ::1 ", "bogus", ""})
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"::ffff:127.0.0.1", true},
		{"10.0.0.1", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := m.Allow(tt.ip); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
	if got := m.Rejected(); len(got) != 1 || got[0] != "bogus" {
		t.Errorf("Rejected() = %v, want [bogus]", got)
	}
	if n := NewIPMatcher([]string{"10.1.2.3/8"}); !n.Allow("10.200.0.1") {
		t.Error("host bits in a CIDR should be masked")
	}
	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("empty list should give an empty matcher")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[::1]:51234"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := ClientIP(r); got != "::1" {
		t.Errorf("ClientIP() = %q, want ::1", got)
	}
}

func TestIsLoopbackHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost:7469", true},
		{"127.0.0.1:7469", true},
		{"[::1]:7469", true},
		{"LOCALHOST", true},
		{"evil.example.com", false},
		{"192.168.1.10:7469", false},
	}
	for _, tt := range tests {
		if got := IsLoopbackHost(tt.host); got != tt.want {
			t.Errorf("IsLoopbackHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}
