package robots_test

import (
	"testing"
	"time"

	"github.com/Nwokike/museum-harvester/internal/robots"
)

const sampleRobots = `
# archive policy
User-agent: *
Disallow: /admin/
Disallow: /search
Crawl-delay: 2

User-agent: museum-harvester
Disallow: /private/
Crawl-delay: 5
`

func TestParsePicksMatchingAgentGroup(t *testing.T) {
	rules := robots.Parse([]byte(sampleRobots), "museum-harvester/1.0 (+https://example.org)")

	if rules.Allowed("/private/data") {
		t.Error("/private/ must be disallowed for the matching agent")
	}
	if !rules.Allowed("/admin/panel") {
		t.Error("wildcard group's disallow must not leak into the matched group")
	}
	if got := rules.CrawlDelay(); got != 5*time.Second {
		t.Errorf("CrawlDelay = %v, want 5s", got)
	}
}

func TestParseFallsBackToWildcard(t *testing.T) {
	rules := robots.Parse([]byte(sampleRobots), "otherbot/2.0")

	if rules.Allowed("/admin/panel") {
		t.Error("/admin/ must be disallowed under the wildcard group")
	}
	if rules.Allowed("/search?q=x") {
		t.Error("/search prefix must be disallowed")
	}
	if !rules.Allowed("/collection/item") {
		t.Error("unmatched paths must be allowed")
	}
	if got := rules.CrawlDelay(); got != 2*time.Second {
		t.Errorf("CrawlDelay = %v, want 2s", got)
	}
}

func TestParseEmptyAndCommentOnly(t *testing.T) {
	rules := robots.Parse([]byte("# nothing here\n"), "museum-harvester/1.0")
	if !rules.Allowed("/anything") {
		t.Error("empty robots must allow everything")
	}
	if rules.CrawlDelay() != 0 {
		t.Error("empty robots must carry no crawl delay")
	}
}

func TestParseMultipleAgentsPerGroup(t *testing.T) {
	body := []byte("User-agent: abot\nUser-agent: bbot\nDisallow: /x/\n")
	rules := robots.Parse(body, "bbot/1.0")
	if rules.Allowed("/x/y") {
		t.Error("group listing several agents must apply to each")
	}
}

func TestAllowedEmptyPathTreatedAsRoot(t *testing.T) {
	rules := robots.Parse([]byte("User-agent: *\nDisallow: /\n"), "anybot")
	if rules.Allowed("") {
		t.Error("blanket disallow must cover the empty path")
	}
}
