package pixel

import (
	"regexp"
	"strings"
)

// Classifier decides how a user agent should count toward real opens.
// The default implementation is a best-effort heuristic, not an exact bot list.
type Classifier interface {
	IsBot(userAgent string) bool
	IsReasonableBrowser(userAgent string) bool
}

var botSignatures = []*regexp.Regexp{
	// crawlers and search engines
	regexp.MustCompile(`(?i)bot\b|bot/|robot`),
	regexp.MustCompile(`(?i)crawler|spider|slurp|scraper`),
	regexp.MustCompile(`(?i)googlebot|bingbot|yandex|baiduspider|duckduckbot|applebot`),
	// social and messaging unfurlers
	regexp.MustCompile(`(?i)facebookexternalhit|facebookcatalog|twitterbot|linkedinbot|slackbot|discordbot|telegrambot|whatsapp|skypeuripreview|embedly`),
	// mail relays, link scanners and prefetchers
	regexp.MustCompile(`(?i)preview|prefetch|scanner|proofpoint|mimecast|barracuda|messagelabs|symantec|forcepoint`),
	regexp.MustCompile(`(?i)headless|phantomjs|puppeteer|playwright|selenium`),
	// generic http clients and bare runtimes
	regexp.MustCompile(`(?i)^(curl|wget|python|java|node|go|ruby|perl|php)\b`),
	regexp.MustCompile(`(?i)curl/|wget/|python-requests|python-urllib|aiohttp|go-http-client|okhttp|axios|node-fetch|libwww-perl|java/|apache-httpclient`),
}

var browserTokens = []string{
	"mozilla", "chrome", "safari", "firefox", "edg", "opera", "opr/",
	"windows", "macintosh", "mac os", "linux", "android", "iphone", "ipad", "mobile",
}

// minBrowserLength is the exclusive lower bound on a plausible browser user agent.
const minBrowserLength = 20

type defaultClassifier struct{}

// NewClassifier returns the default signature-based classifier.
func NewClassifier() Classifier {
	return defaultClassifier{}
}

func (defaultClassifier) IsBot(userAgent string) bool {
	for _, sig := range botSignatures {
		if sig.MatchString(userAgent) {
			return true
		}
	}
	return false
}

func (defaultClassifier) IsReasonableBrowser(userAgent string) bool {
	if len(userAgent) <= minBrowserLength {
		return false
	}
	lower := strings.ToLower(userAgent)
	for _, token := range browserTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// isRealOpen combines IP novelty with the classifier; a bot match always wins.
func isRealOpen(c Classifier, userAgent string, isNewIP bool) bool {
	if !isNewIP || c.IsBot(userAgent) {
		return false
	}
	return c.IsReasonableBrowser(userAgent)
}
