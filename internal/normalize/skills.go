package normalize

import (
	"regexp"
	"strings"
)

// Skills canonicalizes skill lists through a fixed alias table and exposes
// related-skill groups for partial-credit scoring.
type Skills struct {
	aliases map[string]string
	groups  map[string][]string
}

// NewSkills creates a skills normalizer with the built-in alias table and
// related-skill groups.
func NewSkills() *Skills {
	return &Skills{
		aliases: map[string]string{
			"js":       "javascript",
			"py":       "python",
			"ts":       "typescript",
			"react.js": "react",
			"reactjs":  "react",
			"node.js":  "node",
			"nodejs":   "node",
			"vue.js":   "vue",
			"vuejs":    "vue",
			"aws":      "amazon web services",
			"gcp":      "google cloud platform",
			"azure":    "microsoft azure",
			"k8s":      "kubernetes",
			"ml":       "machine learning",
			"ai":       "artificial intelligence",
			"nlp":      "natural language processing",
			"cv":       "computer vision",
			"oop":      "object oriented programming",
			"ci/cd":    "continuous integration and deployment",
			"cicd":     "continuous integration and deployment",
			"devops":   "development operations",
			"ui/ux":    "user interface design",
			"uiux":     "user interface design",
			"ui":       "user interface design",
			"ux":       "user experience design",
		},
		groups: map[string][]string{
			"frontend": {"javascript", "typescript", "react", "vue", "angular", "html", "css"},
			"backend":  {"python", "java", "node", "c++", "go", "rust", "ruby"},
			"cloud":    {"amazon web services", "google cloud platform", "microsoft azure"},
			"data":     {"sql", "postgresql", "mysql", "mongodb", "redis"},
			"ai":       {"machine learning", "artificial intelligence", "natural language processing", "computer vision"},
			"devops":   {"kubernetes", "docker", "continuous integration and deployment", "development operations"},
		},
	}
}

// Dots survive so tokens like "node.js" reach the alias table intact.
var skillChars = regexp.MustCompile(`[^\w\s.-]`)

// Normalize canonicalizes a skill list: lowercase, strip stray characters,
// resolve aliases, drop empties, and dedupe preserving first-seen order.
// Unknown skills pass through unchanged.
func (n *Skills) Normalize(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))

	for _, skill := range skills {
		skill = n.canonical(skill)
		if skill == "" {
			continue
		}
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, skill)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// Related returns the co-members of every skill group the (alias-resolved)
// skill belongs to, excluding the skill itself. Unlike Normalize, the input
// is not stripped of punctuation: group members like "c++" must resolve.
func (n *Skills) Related(skill string) map[string]struct{} {
	skill = n.resolve(strings.ToLower(strings.TrimSpace(skill)))

	related := make(map[string]struct{})
	for _, members := range n.groups {
		if !contains(members, skill) {
			continue
		}
		for _, m := range members {
			if m != skill {
				related[m] = struct{}{}
			}
		}
	}
	return related
}

func (n *Skills) canonical(skill string) string {
	skill = strings.ToLower(strings.TrimSpace(skill))
	skill = skillChars.ReplaceAllString(skill, "")
	return n.resolve(skill)
}

func (n *Skills) resolve(skill string) string {
	if canonical, ok := n.aliases[skill]; ok {
		return canonical
	}
	return skill
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
