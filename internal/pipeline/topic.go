package pipeline

import (
	"regexp"
	"sort"
	"strings"
)

// Topic extraction needs some body text and a word must recur to count.
const (
	minTopicText  = 100
	minTopicCount = 3
	maxTopics     = 15
)

var topicWord = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

var topicStopwords = setOf(
	// function words
	"that", "this", "these", "those", "with", "from", "were", "been", "have", "does",
	"will", "would", "could", "should", "might", "must", "shall", "need", "they",
	"them", "their", "your", "which", "what", "where", "when", "whom", "each",
	"every", "both", "more", "most", "other", "some", "such", "only", "same",
	"than", "very", "just", "also", "here", "there", "then", "once", "because",
	"although", "while", "though", "after", "before", "about", "into", "through",
	"during", "above", "below", "between", "under", "over", "again", "further",
	"even", "still", "already", "among", "within", "across", "whether", "being",
	// academic boilerplate
	"study", "studies", "research", "researchers", "analysis", "results", "result",
	"findings", "data", "method", "methods", "approach", "theory", "theories",
	"model", "models", "table", "figure", "chapter", "section", "paper", "article",
	"journal", "review", "literature", "hypothesis", "conclusion", "introduction",
	"discussion", "abstract", "sample", "variable", "variables", "effect", "effects",
	"relationship", "significant", "level", "levels", "measure", "measures",
	"however", "therefore", "thus", "hence", "moreover", "furthermore", "based",
	"using", "used", "show", "shows", "shown", "found", "suggest", "suggests",
	"indicate", "note", "noted", "example", "first", "second", "third", "year",
	"years", "time", "times", "case", "cases", "point", "different", "similar",
	"important", "general", "specific", "recent", "previous", "current", "present",
	"following", "given", "particular", "available", "possible", "likely", "certain",
	"common", "make", "made", "take", "taken", "give", "come", "came", "work",
	"works", "working", "include", "includes", "including", "provide", "provides",
	"consider", "considered", "report", "reports", "reported", "describe",
	"described", "examine", "examines", "examined", "explore", "explored", "argue",
	"argues", "argued", "claim", "claims", "focus", "focused", "address",
)

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Topics returns up to limit recurring content words of text, most
// frequent first. Ties keep first-appearance order.
func Topics(text string, limit int) []string {
	if len(text) < minTopicText {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, w := range topicWord.FindAllString(text, -1) {
		w = strings.ToLower(w)
		if topicStopwords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	var topics []string
	for _, w := range order {
		if counts[w] >= minTopicCount {
			topics = append(topics, w)
		}
	}
	sort.SliceStable(topics, func(i, j int) bool { return counts[topics[i]] > counts[topics[j]] })
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// TopicContext describes the document for model tiers, e.g.
// "an academic document about religion, sexuality, sociology".
func TopicContext(text string) string {
	topics := Topics(text, maxTopics)
	if len(topics) == 0 {
		return ""
	}
	return "an academic document about " + strings.Join(topics, ", ")
}
