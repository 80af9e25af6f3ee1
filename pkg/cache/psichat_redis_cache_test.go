package cache

import "testing"

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"psichat:classifier", "emotion@abc:123", "psichat:classifier:emotion@abc:123"},
		{"", "emotion@abc:123", "emotion@abc:123"},
	}

	for _, tt := range tests {
		c := NewRedisCache(nil, tt.prefix)
		if got := c.key(tt.key); got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.key, tt.prefix, got, tt.want)
		}
	}
}
