// Package render turns an account identifier into an avatar.Page by loading
// the public profile page.
package render

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"
)

// ErrRenderFailed wraps every navigation or capture failure.
var ErrRenderFailed = errors.New("render failed")

// DefaultProfileURL is the profile address template; %s is the account.
const DefaultProfileURL = "https://x.com/%s"

// ProfileURL expands template with the path-escaped account.
func ProfileURL(template, account string) string {
	if template == "" {
		template = DefaultProfileURL
	}
	if !strings.Contains(template, "%s") {
		return strings.TrimRight(template, "/") + "/" + url.PathEscape(account)
	}
	return fmt.Sprintf(template, url.PathEscape(account))
}

// jitter returns a uniformly random duration in [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		if lo < 0 {
			return 0
		}
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)+1)) //nolint:gosec // timing jitter only
}
