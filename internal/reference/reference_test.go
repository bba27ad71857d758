package reference

import "testing"

func TestParseAuthorName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Author
	}{
		{"first last", "Mark Granovetter", Author{First: "Mark", Last: "Granovetter"}},
		{"inverted", "Granovetter, Mark", Author{First: "Mark", Last: "Granovetter"}},
		{"inverted initials", "Granovetter, M. S.", Author{First: "M.S.", Last: "Granovetter"}},
		{"pubmed", "JAMES TG", Author{First: "T.G.", Last: "James"}},
		{"pubmed mixed case", "Smith J", Author{First: "J.", Last: "Smith"}},
		{"bare initials", "EC Caplan", Author{First: "E.C.", Last: "Caplan"}},
		{"suffix", "Martin Luther King Jr.", Author{First: "Martin Luther", Last: "King", Suffix: "Jr."}},
		{"particle", "Ludwig van Beethoven", Author{First: "Ludwig", Last: "van Beethoven"}},
		{"single", "Madonna", Author{Last: "Madonna"}},
		{"organization", "World Health Organization", Author{Last: "World Health Organization", Org: true}},
		{"acronym", "WHO", Author{Last: "WHO", Org: true}},
		{"empty", "  ", Author{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAuthorName(tt.in)
			if got != tt.want {
				t.Errorf("ParseAuthorName(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAuthorInitials(t *testing.T) {
	tests := []struct {
		author Author
		want   string
	}{
		{Author{First: "Mark", Last: "Granovetter"}, "M."},
		{Author{First: "Mark Stephen", Last: "Granovetter"}, "M. S."},
		{Author{First: "M.S.", Last: "Granovetter"}, "M. S."},
		{Author{First: "Jean-Paul", Last: "Sartre"}, "J.-P."},
		{Author{Last: "WHO", Org: true}, ""},
	}

	for _, tt := range tests {
		if got := tt.author.Initials(); got != tt.want {
			t.Errorf("Initials(%+v) = %q, want %q", tt.author, got, tt.want)
		}
	}
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1086/226147", "10.1086/226147"},
		{"https://doi.org/10.1086/226147", "10.1086/226147"},
		{"http://dx.doi.org/10.1086/226147", "10.1086/226147"},
		{"DOI:10.1038/Nature12373", "10.1038/nature12373"},
		{"  doi.org/10.1000/ABC ", "10.1000/abc"},
	}

	for _, tt := range tests {
		if got := NormalizeDOI(tt.in); got != tt.want {
			t.Errorf("NormalizeDOI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidDOI(t *testing.T) {
	if !ValidDOI("10.1086/226147") {
		t.Error("expected complete DOI to be valid")
	}
	for _, bad := range []string{"10.1086/", "10.12/abc", "11.1086/226147", ""} {
		if ValidDOI(bad) {
			t.Errorf("ValidDOI(%q) = true, want false", bad)
		}
	}
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0-306-40615-2", "9780306406157"},
		{"978-0-306-40615-7", "9780306406157"},
		{"978 0 306 40615 7", "9780306406157"},
		{"0-8044-2957-X", "9780804429573"},
		{"0-306-40615-3", ""},
		{"12345", ""},
	}

	for _, tt := range tests {
		if got := NormalizeISBN(tt.in); got != tt.want {
			t.Errorf("NormalizeISBN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeArXivAndPMID(t *testing.T) {
	if got := NormalizeArXiv("arXiv:2301.12345v2"); got != "2301.12345" {
		t.Errorf("NormalizeArXiv = %q", got)
	}
	if got := NormalizeArXiv("hep-th/9901001"); got != "hep-th/9901001" {
		t.Errorf("NormalizeArXiv old style = %q", got)
	}
	if got := NormalizePMID("PMID: 12345678"); got != "12345678" {
		t.Errorf("NormalizePMID = %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://WWW.Example.com/a/b/", "https://example.com/a/b"},
		{"https://example.com/a?utm_source=x&id=3#frag", "https://example.com/a?id=3"},
		{"not a url", "not a url"},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Strength of Weak Ties!", "the strength of weak ties"},
		{"Gödel, Escher, Bach", "godel escher bach"},
		{"  Social   capital,  in the creation of human capital. ", "social capital in the creation of human capital"},
		{"Self-organized criticality", "self organized criticality"},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.in); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShortTitleAndArticles(t *testing.T) {
	if got := ShortTitle("The Strength of Weak Ties: A Network Theory Revisited"); got != "The Strength of Weak" {
		t.Errorf("ShortTitle = %q", got)
	}
	if got := StripLeadingArticle("The Strength of Weak Ties"); got != "Strength of Weak Ties" {
		t.Errorf("StripLeadingArticle = %q", got)
	}
	if got := StripLeadingArticle("Theory of Games"); got != "Theory of Games" {
		t.Errorf("StripLeadingArticle should not strip partial words, got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want PublicationDate
	}{
		{"1973", PublicationDate{Year: 1973}},
		{"1973-05", PublicationDate{Year: 1973, Month: 5}},
		{"1973-05-01", PublicationDate{Year: 1973, Month: 5, Day: 1}},
		{"1973 May", PublicationDate{Year: 1973, Month: 5}},
		{"", PublicationDate{}},
		{"-", PublicationDate{}},
	}

	for _, tt := range tests {
		if got := ParseDate(tt.in); got != tt.want {
			t.Errorf("ParseDate(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if got := (PublicationDate{}).YearString(); got != "n.d." {
		t.Errorf("YearString of zero date = %q", got)
	}
}

func TestKeys(t *testing.T) {
	if got := DOIKey("https://doi.org/10.1086/226147"); got != "doi:10.1086/226147" {
		t.Errorf("DOIKey = %q", got)
	}
	if got := ISBNKey("0-306-40615-2"); got != "isbn:9780306406157" {
		t.Errorf("ISBNKey = %q", got)
	}
	if got := ISBNKey("bogus"); got != "" {
		t.Errorf("ISBNKey(bogus) = %q, want empty", got)
	}
	if got := AuthorYearKey([]string{"Smith", "Jones"}, "2020", ""); got != "ay:smith+jones|2020|" {
		t.Errorf("AuthorYearKey = %q", got)
	}

	m := Metadata{DOI: "10.1086/226147", PMID: "123456"}
	keys := m.StrongKeys()
	if len(keys) != 2 || keys[0] != "doi:10.1086/226147" || keys[1] != "pmid:123456" {
		t.Errorf("StrongKeys = %v", keys)
	}
}

func TestUnresolved(t *testing.T) {
	m := Unresolved("(Smith, 2020)")
	if !m.IsUnresolved() || m.Confidence != 0 || m.Kind != KindUnresolved {
		t.Errorf("Unresolved placeholder = %+v", m)
	}
	if m.URL != "" {
		t.Errorf("non-URL placeholder should not carry a URL, got %q", m.URL)
	}
	if u := Unresolved("https://example.com/x"); u.URL != "https://example.com/x" {
		t.Errorf("URL placeholder should keep the URL, got %q", u.URL)
	}
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name    string
		m       Metadata
		want    float64
		missing []string
	}{
		{
			"complete journal",
			Metadata{Kind: KindJournal, Title: "The Strength of Weak Ties", Authors: []Author{{Last: "Granovetter"}}, Container: "AJS", Published: PublicationDate{Year: 1973}},
			1, nil,
		},
		{
			"book without publisher or authors",
			Metadata{Kind: KindBook, Title: "A Theory of Justice", Published: PublicationDate{Year: 1971}},
			0.5, []string{"authors", "publisher"},
		},
		{
			"legal case",
			Metadata{Kind: KindLegalCase, CaseName: "Miranda v. Arizona", Reporter: "384 U.S. 436", Published: PublicationDate{Year: 1966}},
			1, nil,
		},
		{
			"webpage with url",
			Metadata{Kind: KindWebpage, Title: "Flu season", URL: "https://cdc.gov/flu"},
			1, nil,
		},
		{
			"placeholder",
			Unresolved("(Smith, 2020)"),
			0, []string{"title"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := tt.m.Completeness()
			if got != tt.want {
				t.Errorf("Completeness() = %v, want %v", got, tt.want)
			}
			if missing != len(tt.missing) {
				t.Errorf("missing = %d, want %d", missing, len(tt.missing))
			}
			fields := tt.m.MissingFields()
			if len(fields) != len(tt.missing) {
				t.Fatalf("MissingFields() = %v, want %v", fields, tt.missing)
			}
			for i := range fields {
				if fields[i] != tt.missing[i] {
					t.Errorf("MissingFields()[%d] = %q, want %q", i, fields[i], tt.missing[i])
				}
			}
		})
	}
}
