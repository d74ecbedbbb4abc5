package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/language"
)

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback language.Tag
		country  string
		want     language.Tag
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "EN")
			},
			country: "VN",
			want:    language.English,
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: language.English,
		},
		{
			name: "accept-language vi preference",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "vi-VN,en;q=0.8")
			},
			want: language.Vietnamese,
		},
		{
			name: "unsupported accept-language ignored",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "fr-FR")
			},
			country: "US",
			want:    language.English,
		},
		{
			name:     "country vn",
			country:  "VN",
			fallback: language.English,
			want:     language.Vietnamese,
		},
		{
			name:    "other country falls back to en",
			country: "SG",
			want:    language.English,
		},
		{
			name:     "configured fallback",
			fallback: language.English,
			want:     language.English,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(r)
			}
			fallback := tc.fallback
			if fallback == language.Und {
				fallback = language.Vietnamese
			}
			if got := detectLocale(r, fallback, tc.country); got != tc.want {
				t.Fatalf("locale mismatch: got %v want %v", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	lookupCalls := 0
	lookup := func(ip string) (string, error) {
		lookupCalls++
		if ip == "14.160.0.1" {
			return "vn", nil
		}
		return "", errors.New("unknown")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("CF-IPCountry", "sg")
	if got := ResolveCountry(r, lookup); got != "SG" {
		t.Fatalf("header country mismatch: got %q", got)
	}
	if lookupCalls != 0 {
		t.Fatalf("lookup should not run when a header is present")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "14.160.0.1:5555"
	if got := ResolveCountry(r, lookup); got != "VN" {
		t.Fatalf("lookup country mismatch: got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("CF-IPCountry", "XX")
	r.RemoteAddr = "10.0.0.1:5555"
	if got := ResolveCountry(r, lookup); got != "" {
		t.Fatalf("expected empty country, got %q", got)
	}
}

func TestI18NStoresLocaleInContext(t *testing.T) {
	var (
		gotLocale  language.Tag
		gotCountry string
	)
	h := I18N("en", func(string) (string, error) { return "VN", nil })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = LocaleFromContext(r.Context())
		gotCountry = CountryFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if gotLocale != language.Vietnamese {
		t.Fatalf("locale mismatch: got %v", gotLocale)
	}
	if gotCountry != "VN" {
		t.Fatalf("country mismatch: got %q", gotCountry)
	}
	if rec.Header().Get("Content-Language") != "vi" {
		t.Fatalf("Content-Language mismatch: got %q", rec.Header().Get("Content-Language"))
	}
}

func TestLocaleFromEmptyContext(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != language.Vietnamese {
		t.Fatalf("default locale mismatch: got %v", got)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.10:1234"
	if got := ClientIP(r); got != "198.51.100.10" {
		t.Fatalf("remote addr mismatch: got %q", got)
	}
	r.Header.Set("X-Forwarded-For", " 203.0.113.1 , 198.51.100.2")
	if got := ClientIP(r); got != "203.0.113.1" {
		t.Fatalf("forwarded mismatch: got %q", got)
	}
}
