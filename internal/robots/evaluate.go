package robots

import (
	"strings"
	"time"
)

// defaultCrawlDelay is used whenever robots.txt does not specify one.
const defaultCrawlDelay = time.Second

// Allows reports whether path is permitted under rs for the user agent the
// ruleSet was mapped for. The longest matching prefix wins; a tie between
// an allow and a disallow rule of equal length favors allow, matching the
// de-facto robots.txt convention (the allow directive is generally the
// more specific one in well-formed files).
func Allows(rs ruleSet, path string) bool {
	if !rs.hasGroups {
		return true
	}
	if !rs.matchedGroup {
		return true
	}

	allowLen := -1
	for _, rule := range rs.allowRules {
		if strings.HasPrefix(path, rule.prefix) && len(rule.prefix) > allowLen {
			allowLen = len(rule.prefix)
		}
	}
	disallowLen := -1
	for _, rule := range rs.disallowRules {
		if strings.HasPrefix(path, rule.prefix) && len(rule.prefix) > disallowLen {
			disallowLen = len(rule.prefix)
		}
	}
	if disallowLen < 0 {
		return true
	}
	if allowLen < 0 {
		return false
	}
	return allowLen >= disallowLen
}

// CrawlDelay returns the crawl delay declared for rs, or the conservative
// 1-second floor when none was declared.
func CrawlDelay(rs ruleSet) time.Duration {
	if d := rs.CrawlDelay(); d != nil {
		return *d
	}
	return defaultCrawlDelay
}
