package reference

// MissingFields names the fields a complete record of m's kind lacks.
//
//	journal:    title, authors, year, container
//	book:       title, authors, year, publisher
//	legal case: case name, reporter or court, year
//	newspaper:  title, container, year
//	webpage:    title, container or URL
func (m Metadata) MissingFields() []string {
	var missing []string
	need := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}
	hasYear := m.Published.Year > 0
	switch m.Kind {
	case KindJournal:
		need(m.Title != "", "title")
		need(len(m.Authors) > 0, "authors")
		need(hasYear, "year")
		need(m.Container != "", "container")
	case KindBook:
		need(m.Title != "", "title")
		need(len(m.Authors) > 0, "authors")
		need(hasYear, "year")
		need(m.Publisher != "", "publisher")
	case KindLegalCase:
		need(m.CaseName != "" || m.Title != "", "case_name")
		need(m.Reporter != "" || m.Court != "", "reporter")
		need(hasYear, "year")
	case KindNewspaper:
		need(m.Title != "", "title")
		need(m.Container != "", "container")
		need(hasYear, "year")
	case KindWebpage:
		need(m.Title != "", "title")
		need(m.Container != "" || m.URL != "", "container")
	default:
		need(m.DisplayTitle() != "", "title")
	}
	return missing
}

// requiredFieldCount is the number of fields MissingFields checks for k.
func requiredFieldCount(k Kind) int {
	switch k {
	case KindJournal, KindBook:
		return 4
	case KindLegalCase, KindNewspaper:
		return 3
	case KindWebpage:
		return 2
	}
	return 1
}

// Completeness returns the share of required fields present in m and how
// many are missing.
func (m Metadata) Completeness() (float64, int) {
	total := requiredFieldCount(m.Kind)
	missing := len(m.MissingFields())
	return float64(total-missing) / float64(total), missing
}

// IsComplete reports whether m has every required field of its kind.
func (m Metadata) IsComplete() bool { return len(m.MissingFields()) == 0 }
