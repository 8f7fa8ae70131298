package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		country  string
		want     string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "TR")
			},
			country: "US",
			want:    "tr",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: "en",
		},
		{
			name: "accept-language tr preference",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "tr-TR,en;q=0.8")
			},
			want: "tr",
		},
		{
			name:    "country tr overrides",
			country: "TR",
			want:    "tr",
		},
		{
			name:    "country non-tr falls back to en",
			country: "US",
			want:    "en",
		},
		{
			name:     "configured fallback",
			fallback: "en",
			want:     "en",
		},
		{
			name: "default to tr",
			want: "tr",
		},
	}

	for _, tc := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tc.setup != nil {
			tc.setup(r)
		}
		if got := detectLocale(r, tc.fallback, tc.country); got != tc.want {
			t.Fatalf("%s: locale = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestI18NMiddlewareSetsLocaleContext(t *testing.T) {
	lookup := func(ip string) (string, error) { return "TR", nil }

	var got string
	handler := I18N("tr", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if got != "tr" {
		t.Fatalf("locale = %q, want tr", got)
	}
}

func TestResolveCountryWithoutLookup(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if got := ResolveCountry(r, nil); got != "" {
		t.Fatalf("country = %q, want empty", got)
	}
}
