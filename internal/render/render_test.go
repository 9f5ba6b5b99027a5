package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfileURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		account  string
		want     string
	}{
		{name: "default template", account: "jack", want: "https://x.com/jack"},
		{name: "custom template", template: "http://127.0.0.1:8080/u/%s", account: "jack", want: "http://127.0.0.1:8080/u/jack"},
		{name: "base without verb", template: "http://127.0.0.1:8080/", account: "jack", want: "http://127.0.0.1:8080/jack"},
		{name: "escapes path", account: "a/b c", want: "https://x.com/a%2Fb%20c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ProfileURL(tt.template, tt.account))
		})
	}
}

func TestJitterBounds(t *testing.T) {
	t.Parallel()

	lo, hi := 10*time.Millisecond, 20*time.Millisecond
	for i := 0; i < 200; i++ {
		d := jitter(lo, hi)
		assert.GreaterOrEqual(t, d, lo)
		assert.LessOrEqual(t, d, hi)
	}
	assert.Equal(t, lo, jitter(lo, lo))
	assert.Equal(t, lo, jitter(lo, 0))
	assert.Equal(t, time.Duration(0), jitter(-time.Second, -2*time.Second))
}
