package reference

import (
	"net/url"
	"regexp"
	"strings"
)

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"dx.doi.org/",
	"doi:",
}

// doiShape matches a complete DOI: registrant prefix and non-empty suffix.
var doiShape = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// NormalizeDOI normalizes a DOI to a consistent format for comparison.
// It removes resolver URL and "doi:" prefixes and converts to lowercase.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return strings.ToLower(strings.TrimSpace(doi))
}

// ValidDOI reports whether doi (already normalized) has a registrant
// prefix and a suffix.
func ValidDOI(doi string) bool {
	return doiShape.MatchString(doi)
}

// NormalizeISBN strips hyphens and spaces and upper-cases a trailing X.
// Valid ISBN-10s are converted to ISBN-13 so both forms compare equal.
// It returns "" if the checksum fails.
func NormalizeISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		}
	}
	s := b.String()
	switch len(s) {
	case 10:
		if !validISBN10(s) {
			return ""
		}
		return isbn10To13(s)
	case 13:
		if !validISBN13(s) {
			return ""
		}
		return s
	}
	return ""
}

func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		var d int
		switch {
		case s[i] == 'X' && i == 9:
			d = 10
		case s[i] >= '0' && s[i] <= '9':
			d = int(s[i] - '0')
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}

func isbn10To13(s string) string {
	body := "978" + s[:9]
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return body + string(rune('0'+check))
}

// NormalizeArXiv strips "arXiv:" and any version suffix.
func NormalizeArXiv(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 6 && strings.EqualFold(id[:6], "arxiv:") {
		id = strings.TrimSpace(id[6:])
	}
	if i := strings.LastIndex(id, "v"); i > 0 && i < len(id)-1 && allDigits(id[i+1:]) {
		id = id[:i]
	}
	return strings.ToLower(id)
}

// NormalizePMID strips a "PMID:" prefix and surrounding space.
func NormalizePMID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 5 && strings.EqualFold(id[:5], "pmid:") {
		id = strings.TrimSpace(id[5:])
	}
	return id
}

// Query parameters that never identify content.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid",
}

// NormalizeURL lowercases scheme and host, drops "www.", fragments,
// tracking parameters and a trailing slash. Unparseable input is
// returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range trackingParams {
			q.Del(p)
		}
		u.RawQuery = q.Encode()
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// Host returns the lowercase host of raw without "www.", or "".
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
