package model

import (
	"regexp"
	"sort"
	"strings"
)

// Tags is a sorted set of lower-cased hashtags or mentions.
type Tags []string

var (
	hashtagPattern = regexp.MustCompile(`(?:^|\s)[＃#]([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`(?:^|\s)[＠@]([^\s#<>\[\]|{}]+)`)
)

// Hashtags extracts the hashtags of a caption. Hashtags are case insensitive.
func Hashtags(text string) Tags {
	return matches(text, hashtagPattern)
}

// Mentions extracts the mentioned usernames of a caption.
func Mentions(text string) Tags {
	return matches(text, mentionPattern)
}

func matches(text string, pattern *regexp.Regexp) Tags {
	seen := make(map[string]struct{})
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		seen[strings.ToLower(m[1])] = struct{}{}
	}
	tags := make(Tags, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// String joins the set with commas.
func (t Tags) String() string {
	return strings.Join(t, ",")
}

// Contains reports whether tag is a member of the set.
func (t Tags) Contains(tag string) bool {
	tag = strings.ToLower(strings.TrimLeft(tag, "#＃@＠"))
	i := sort.SearchStrings(t, tag)
	return i < len(t) && t[i] == tag
}
