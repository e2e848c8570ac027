package web_fetch

import "testing"

func TestParseLinkStripsTracking(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"default port and fragment", "http://Travel.Example.com:80/kyoto#day-2", "http://travel.example.com/kyoto"},
		{"utm and click ids", "https://example.com/guide?id=7&utm_source=rss&fbclid=abc&page=2", "https://example.com/guide?id=7&page=2"},
		{"keeps non default port", "https://example.com:8443/a?b=1", "https://example.com:8443/a?b=1"},
		{"only tracking", "https://example.com/a?utm_medium=email", "https://example.com/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := parseLink(tt.in)
			if err != nil {
				t.Fatalf("parseLink(%q): %v", tt.in, err)
			}
			if got := u.String(); got != tt.want {
				t.Fatalf("parseLink(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLinkRejects(t *testing.T) {
	for _, in := range []string{"", "example.com/a", "ftp://example.com/f", "https:///nohost"} {
		if _, err := parseLink(in); err == nil {
			t.Fatalf("parseLink(%q): expected error", in)
		}
	}
}
