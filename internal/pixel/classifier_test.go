package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name      string
		userAgent string
		bot       bool
		browser   bool
	}{
		{"desktop chrome", chromeUA, false, true},
		{"iphone safari", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148", false, true},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true, true},
		{"facebook unfurler", "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", true, false},
		{"curl", "curl/8.4.0", true, false},
		{"wget", "Wget/1.21.4", true, false},
		{"python requests", "python-requests/2.31.0", true, false},
		{"go client", "Go-http-client/1.1", true, false},
		{"bare runtime", "node", true, false},
		{"short browser token", "Mozilla/5.0", false, false},
		{"empty", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.bot, c.IsBot(tt.userAgent), "IsBot")
			assert.Equal(t, tt.browser, c.IsReasonableBrowser(tt.userAgent), "IsReasonableBrowser")
		})
	}
}

func TestIsRealOpen(t *testing.T) {
	c := NewClassifier()

	assert.True(t, isRealOpen(c, chromeUA, true))
	assert.False(t, isRealOpen(c, chromeUA, false), "repeat ip")
	// Googlebot also looks like a browser; the bot match wins.
	assert.False(t, isRealOpen(c, "Mozilla/5.0 (compatible; Googlebot/2.1)", true))
	assert.False(t, isRealOpen(c, "Mozilla/5.0", true))
}
