package robots

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"time"
)

/*
Minimal robots.txt support: disallow prefixes and crawl-delay for the
agent groups that apply to us. Fetching the file is the caller's job;
this package only interprets bytes.
*/

// Rules is the parsed policy for one host, already narrowed to the
// most specific user-agent group that matched.
type Rules struct {
	disallow   []string
	crawlDelay time.Duration
}

// EmptyRules permits everything.
func EmptyRules() Rules {
	return Rules{}
}

// Parse extracts the rules applying to userAgent. Group selection
// follows the standard: an exact (prefix) agent match beats the "*"
// group; within a group, directives accumulate.
func Parse(body []byte, userAgent string) Rules {
	agentToken := strings.ToLower(productToken(userAgent))

	type group struct {
		agents     []string
		disallow   []string
		crawlDelay time.Duration
	}
	var groups []group
	var current *group
	inAgentRun := false

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		field, value, ok := splitDirective(line)
		if !ok {
			continue
		}
		switch field {
		case "user-agent":
			if !inAgentRun {
				groups = append(groups, group{})
				current = &groups[len(groups)-1]
				inAgentRun = true
			}
			current.agents = append(current.agents, strings.ToLower(value))
		case "disallow":
			inAgentRun = false
			if current != nil && value != "" {
				current.disallow = append(current.disallow, value)
			}
		case "allow":
			// Allow directives are not modeled; an unmatched disallow
			// prefix already permits the path.
			inAgentRun = false
		case "crawl-delay":
			inAgentRun = false
			if current != nil {
				if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
					current.crawlDelay = time.Duration(secs * float64(time.Second))
				}
			}
		default:
			inAgentRun = false
		}
	}

	var wildcard, matched *group
	for i := range groups {
		g := &groups[i]
		for _, agent := range g.agents {
			if agent == "*" && wildcard == nil {
				wildcard = g
			}
			if agent != "*" && matched == nil && strings.Contains(agentToken, agent) {
				matched = g
			}
		}
	}
	pick := matched
	if pick == nil {
		pick = wildcard
	}
	if pick == nil {
		return EmptyRules()
	}
	return Rules{
		disallow:   pick.disallow,
		crawlDelay: pick.crawlDelay,
	}
}

// Allowed reports whether the path may be fetched.
func (r *Rules) Allowed(path string) bool {
	if path == "" {
		path = "/"
	}
	for _, prefix := range r.disallow {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// CrawlDelay returns the host's requested minimum spacing, zero when
// the file names none.
func (r *Rules) CrawlDelay() time.Duration {
	return r.crawlDelay
}

func splitDirective(line string) (field, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	field = strings.ToLower(strings.TrimSpace(line[:i]))
	value = strings.TrimSpace(line[i+1:])
	return field, value, field != ""
}

// productToken trims a full User-Agent header down to its product
// name, e.g. "harvester/1.2 (+https://...)" becomes "harvester/1.2".
func productToken(userAgent string) string {
	fields := strings.Fields(userAgent)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
