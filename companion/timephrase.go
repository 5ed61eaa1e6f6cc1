package companion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TimePhrase maps a vague time-of-day phrase to a clock time.
type TimePhrase struct {
	Phrases []string
	Clock   string
}

// VagueTimePhrases is consulted only when no explicit clock time is present.
var VagueTimePhrases = []TimePhrase{
	{Phrases: []string{"morning", "아침"}, Clock: "08:00"},
	{Phrases: []string{"noon", "lunch", "점심", "정오"}, Clock: "12:00"},
	{Phrases: []string{"evening", "저녁"}, Clock: "18:00"},
	{Phrases: []string{"night", "밤"}, Clock: "21:00"},
}

var (
	meridiemClock = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)`)
	colonClock    = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	koreanClock   = regexp.MustCompile(`(\d{1,2})\s*시(?:\s*(\d{1,2})\s*분|\s*(반))?`)
)

// NormalizeClock turns a time expression into "HH:MM". Explicit times ("8시",
// "오후 3시 30분", "7:30pm", "19:05") win over vague phrases ("아침", "evening").
// The second result is false when nothing usable was found.
func NormalizeClock(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}

	if m := meridiemClock.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min := 0
		if m[2] != "" {
			min, _ = strconv.Atoi(m[2])
		}
		if h < 1 || h > 12 {
			return "", false
		}
		h %= 12
		if strings.HasPrefix(m[3], "p") {
			h += 12
		}
		return formatClock(h, min)
	}

	if m := colonClock.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return formatClock(applyDayPart(s, h), min)
	}

	if m := koreanClock.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min := 0
		switch {
		case m[2] != "":
			min, _ = strconv.Atoi(m[2])
		case m[3] != "":
			min = 30
		}
		return formatClock(applyDayPart(s, h), min)
	}

	for _, tp := range VagueTimePhrases {
		for _, p := range tp.Phrases {
			if containsPhrase(s, p) {
				return tp.Clock, true
			}
		}
	}
	return "", false
}

// containsPhrase matches Latin phrases as whole words ("noon" is not in
// "afternoon"). Hangul phrases attach particles, so they match as substrings.
func containsPhrase(s, phrase string) bool {
	if !isLatinWord(phrase) {
		return strings.Contains(s, phrase)
	}
	for i := 0; ; {
		j := strings.Index(s[i:], phrase)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(phrase)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !unicode.IsLetter(before) && !unicode.IsLetter(after) {
			return true
		}
		i = start + 1
	}
}

func isLatinWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// applyDayPart shifts a 12-hour reading using Korean day-part words.
func applyDayPart(s string, h int) int {
	if h > 12 {
		return h
	}
	switch {
	case strings.Contains(s, "오후"), strings.Contains(s, "저녁"):
		if h < 12 {
			return h + 12
		}
	case strings.Contains(s, "밤"):
		if h >= 6 && h < 12 {
			return h + 12
		}
		if h == 12 {
			return 0
		}
	case strings.Contains(s, "오전"), strings.Contains(s, "새벽"), strings.Contains(s, "아침"):
		if h == 12 {
			return 0
		}
	}
	return h
}

func formatClock(h, min int) (string, bool) {
	if h < 0 || h > 23 || min < 0 || min > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, min), true
}
