// Package normalize maps raw job-posting text to the canonical forms used
// both at indexing time and at query time, so both sides compare in the same
// space. Normalizers are stateless value objects: construct once, share
// freely across requests.
package normalize

import (
	"regexp"
	"strings"
)

// Canonical seniority levels. Every normalized title starts with exactly one
// of these.
const (
	EntryLevel  = "entry-level"
	MidLevel    = "mid-level"
	SeniorLevel = "senior-level"
	LeadLevel   = "lead-level"
)

// Title canonicalizes job titles into "<seniority> <role>" form.
type Title struct {
	roleAliases map[string]string
	seniority   map[string]string
}

// NewTitle creates a title normalizer with the built-in alias tables.
func NewTitle() *Title {
	return &Title{
		roleAliases: map[string]string{
			// Software engineering
			"sde":        "software development engineer",
			"swe":        "software engineer",
			"dev":        "software developer",
			"developer":  "software developer",
			"programmer": "software developer",
			"coder":      "software developer",
			"backend":    "backend developer",
			"frontend":   "frontend developer",
			"fullstack":  "full stack developer",
			"full-stack": "full stack developer",
			"full stack": "full stack developer",

			// Data science
			"ds":                 "data scientist",
			"mle":                "machine learning engineer",
			"ml engineer":        "machine learning engineer",
			"ai engineer":        "machine learning engineer",
			"data engineer":      "data engineer",
			"de":                 "data engineer",
			"analytics engineer": "data analyst",
			"data analytics":     "data analyst",

			// Business intelligence
			"bie":          "business intelligence engineer",
			"bi engineer":  "business intelligence engineer",
			"bi developer": "business intelligence developer",
			"bi analyst":   "business intelligence analyst",

			// DevOps and infrastructure
			"sre":               "site reliability engineer",
			"devops":            "devops engineer",
			"platform engineer": "devops engineer",
			"cloud engineer":    "cloud infrastructure engineer",
			"infra":             "infrastructure engineer",

			// Quality assurance
			"qa":                  "quality assurance engineer",
			"sdet":                "software development engineer in test",
			"test engineer":       "quality assurance engineer",
			"automation engineer": "quality assurance automation engineer",

			// Product and project
			"pm":              "product manager",
			"po":              "product owner",
			"tpm":             "technical program manager",
			"program manager": "technical program manager",

			// Security
			"security engineer": "information security engineer",
			"appsec":            "application security engineer",
			"infosec":           "information security engineer",

			// Mobile
			"ios":     "ios developer",
			"android": "android developer",
			"mobile":  "mobile developer",
		},
		seniority: map[string]string{
			"junior":      EntryLevel,
			"jr":          EntryLevel,
			"entry level": EntryLevel,
			"entry-level": EntryLevel,
			"associate":   EntryLevel,
			"intern":      EntryLevel,
			"trainee":     EntryLevel,
			"graduate":    EntryLevel,
			"level 1":     EntryLevel,
			"level i":     EntryLevel,
			"i":           EntryLevel,
			"grade 1":     EntryLevel,

			"mid":          MidLevel,
			"mid level":    MidLevel,
			"mid-level":    MidLevel,
			"intermediate": MidLevel,
			"level 2":      MidLevel,
			"level ii":     MidLevel,
			"ii":           MidLevel,
			"grade 2":      MidLevel,
			"level 3":      MidLevel,
			"level iii":    MidLevel,
			"iii":          MidLevel,
			"grade 3":      MidLevel,

			"senior":        SeniorLevel,
			"sr":            SeniorLevel,
			"staff":         SeniorLevel,
			"principal":     SeniorLevel,
			"distinguished": SeniorLevel,
			"level 4":       SeniorLevel,
			"level iv":      SeniorLevel,
			"iv":            SeniorLevel,
			"grade 4":       SeniorLevel,

			"lead":      LeadLevel,
			"chief":     LeadLevel,
			"head":      LeadLevel,
			"director":  LeadLevel,
			"manager":   LeadLevel,
			"architect": LeadLevel,
			"level 5":   LeadLevel,
			"level v":   LeadLevel,
			"v":         LeadLevel,
			"grade 5":   LeadLevel,
		},
	}
}

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	titlePunct    = regexp.MustCompile(`[^\w\s-]`)
	multiSpace    = regexp.MustCompile(`\s+`)
)

// Normalize maps a raw title to "<seniority-level> <canonical role>".
// Total: never fails, empty input yields an empty string. Titles without a
// seniority marker default to mid-level.
func (n *Title) Normalize(title string) string {
	if title == "" {
		return ""
	}

	title = strings.ToLower(strings.TrimSpace(title))
	title = parenthetical.ReplaceAllString(title, "")

	title = n.normalizeRole(title)

	seniority, remaining := n.extractSeniority(title)

	remaining = titlePunct.ReplaceAllString(strings.TrimSpace(remaining), " ")
	remaining = strings.TrimSpace(multiSpace.ReplaceAllString(remaining, " "))

	if seniority == "" {
		return remaining
	}
	return strings.TrimSpace(seniority + " " + remaining)
}

// normalizeRole substitutes the longest matching role alias. Windows are
// scanned widest-first so that "full stack developer" wins over "developer".
func (n *Title) normalizeRole(title string) string {
	words := strings.Fields(title)

	for size := len(words); size >= 1; size-- {
		for start := 0; start+size <= len(words); start++ {
			phrase := strings.Join(words[start:start+size], " ")
			canonical, ok := n.roleAliases[phrase]
			if !ok {
				continue
			}
			replaced := make([]string, 0, len(words))
			replaced = append(replaced, words[:start]...)
			replaced = append(replaced, strings.Fields(canonical)...)
			replaced = append(replaced, words[start+size:]...)
			return strings.Join(replaced, " ")
		}
	}

	return strings.Join(words, " ")
}

// extractSeniority pulls the seniority marker out of the title, checking the
// first word, first two words, last word, last two words, then any word.
// First match wins and is removed from the remaining text.
func (n *Title) extractSeniority(title string) (string, string) {
	words := strings.Fields(title)
	if len(words) == 0 {
		return "", ""
	}

	if level, ok := n.seniority[words[0]]; ok {
		return level, strings.Join(words[1:], " ")
	}

	if len(words) >= 2 {
		if level, ok := n.seniority[words[0]+" "+words[1]]; ok {
			return level, strings.Join(words[2:], " ")
		}
	}

	last := len(words) - 1
	if level, ok := n.seniority[words[last]]; ok {
		return level, strings.Join(words[:last], " ")
	}

	if len(words) >= 2 {
		if level, ok := n.seniority[words[last-1]+" "+words[last]]; ok {
			return level, strings.Join(words[:last-1], " ")
		}
	}

	for _, w := range words {
		level, ok := n.seniority[w]
		if !ok {
			continue
		}
		remaining := make([]string, 0, len(words)-1)
		for _, other := range words {
			if other != w {
				remaining = append(remaining, other)
			}
		}
		return level, strings.Join(remaining, " ")
	}

	return MidLevel, strings.Join(words, " ")
}
