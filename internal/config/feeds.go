package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Feed describes one iCalendar subscription that is imported into the
// event store.
type Feed struct {
	// ID prefixes the external IDs of imported events; it must stay stable
	// or previously imported events are treated as vanished.
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// FeedList is the document stored in FEEDS_FILE.
type FeedList struct {
	Feeds []Feed `yaml:"feeds" json:"feeds"`
}

var feedIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidFeedID reports whether id may be used as a feed ID. IDs never
// contain ':', which separates the parts of an imported event's external ID.
func ValidFeedID(id string) bool {
	return feedIDRe.MatchString(id)
}

// LoadFeeds reads and validates a YAML feed list.
//
//	feeds:
//	  - id: holidays
//	    name: Public holidays
//	    url: https://example.com/holidays.ics
func LoadFeeds(path string) (*FeedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file: %w", err)
	}
	return ParseFeeds(data)
}

// ParseFeeds parses and validates a YAML feed list.
func ParseFeeds(data []byte) (*FeedList, error) {
	var list FeedList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse feeds: %w", err)
	}
	if err := list.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feeds: %w", err)
	}
	return &list, nil
}

// Validate checks for missing or duplicate IDs and unusable URLs.
func (l *FeedList) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(l.Feeds))

	for i, f := range l.Feeds {
		if !ValidFeedID(f.ID) {
			errs = append(errs, fmt.Errorf("feed %d: id %q must be letters, digits, '-' or '_'", i, f.ID))
		} else if seen[f.ID] {
			errs = append(errs, fmt.Errorf("feed %d: duplicate id %q", i, f.ID))
		}
		seen[f.ID] = true

		u, err := url.Parse(f.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file") {
			errs = append(errs, fmt.Errorf("feed %q: url %q must be http, https or file", f.ID, f.URL))
		}
	}

	return errors.Join(errs...)
}

// Lookup returns the feed with the given ID.
func (l *FeedList) Lookup(id string) (Feed, bool) {
	for _, f := range l.Feeds {
		if f.ID == id {
			return f, true
		}
	}
	return Feed{}, false
}
