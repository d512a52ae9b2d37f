package util

import (
	"net/http"
	"testing"
	"time"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure-proxy.local:3128", "localhost,.internal")

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"http target", "http://nominatim.openstreetmap.org/reverse", "http://proxy.local:3128"},
		{"https target", "https://api.openai.com/v1/chat/completions", "http://secure-proxy.local:3128"},
		{"no_proxy host", "http://localhost:11434/api/chat", ""},
		{"no_proxy domain", "https://push.internal/send", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, tt.target, nil)
			got, err := proxy(req)
			if err != nil {
				t.Fatalf("proxy returned error: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("expected direct connection, got %s", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestNewProxyFunc_HTTPSFallsBackToHTTPProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "")

	req, _ := http.NewRequest(http.MethodGet, "https://api.anthropic.com/v1/messages", nil)
	got, err := proxy(req)
	if err != nil {
		t.Fatalf("proxy returned error: %v", err)
	}
	if got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("expected http proxy for https target, got %v", got)
	}
}

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(5*time.Second, "", "", "")
	if client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", client.Timeout)
	}
	if _, ok := client.Transport.(*http.Transport); !ok {
		t.Error("expected *http.Transport")
	}
}
