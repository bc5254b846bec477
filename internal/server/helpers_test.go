package server

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/profile"},
		{"/manage/posts/new", "/manage/posts/new"},
		{"/post/hello?x=1", "/post/hello?x=1"},
		{"//evil.example.com", "/profile"},
		{"https://evil.example.com", "/profile"},
		{`/\evil.example.com`, "/profile"},
		{"profile", "/profile"},
		{"/\t/evil.example.com", "/profile"},
		{"/\n/evil.example.com", "/profile"},
		{"/\r\n/evil.example.com", "/profile"},
		{"/\x7f/evil.example.com", "/profile"},
		{"/post/caf\u00e9", "/post/caf\u00e9"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.next, "/profile"), "next=%q", tt.next)
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"on", "true", "1", "YES", " On "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "off", "false", "0", "nope"} {
		assert.False(t, isTruthy(v), v)
	}
}
