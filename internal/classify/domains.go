package classify

import "strings"

var academicDomains = []string{
	"doi.org", "jstor.org", "ncbi.nlm.nih.gov", "arxiv.org", "scholar.google.com",
	"academic.oup.com", "cambridge.org", "springer.com", "wiley.com", "tandfonline.com",
	"sagepub.com", "sciencedirect.com", "nature.com", "science.org", "pnas.org",
	"cell.com", "biorxiv.org", "medrxiv.org", "ssrn.com", "researchgate.net",
	"plos.org", "frontiersin.org", "mdpi.com", "ieee.org", "acm.org", "semanticscholar.org",
	"openalex.org", "europepmc.org", "journals.uchicago.edu",
}

var newspaperDomains = []string{
	"nytimes.com", "washingtonpost.com", "wsj.com", "latimes.com", "theatlantic.com",
	"newyorker.com", "economist.com", "theguardian.com", "guardian.co.uk", "bbc.co.uk",
	"bbc.com", "reuters.com", "apnews.com", "bloomberg.com", "ft.com", "npr.org",
	"politico.com", "time.com", "usatoday.com", "cnn.com", "forbes.com", "axios.com",
	"chicagotribune.com", "bostonglobe.com", "thetimes.co.uk", "telegraph.co.uk",
	"nybooks.com", "slate.com", "vox.com", "wired.com",
}

var legalDomains = []string{
	"courtlistener.com", "law.justia.com", "supreme.justia.com", "oyez.org",
	"supremecourt.gov", "law.cornell.edu", "casetext.com", "caselaw.findlaw.com",
	"bailii.org", "uscourts.gov",
}

// hostIn reports whether host equals or is a subdomain of one of domains.
func hostIn(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsAcademicHost reports whether host belongs to a scholarly publisher or index.
func IsAcademicHost(host string) bool { return hostIn(host, academicDomains) }

// IsNewspaperHost reports whether host belongs to a newspaper or magazine.
func IsNewspaperHost(host string) bool { return hostIn(host, newspaperDomains) }

// IsLegalHost reports whether host publishes court opinions.
func IsLegalHost(host string) bool { return hostIn(host, legalDomains) }
