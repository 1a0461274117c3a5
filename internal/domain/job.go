package domain

import (
	"strings"
)

// KeyPrefix namespaces all jobdex keys in the database.
const KeyPrefix = "jobdex:"

// Hash field names for stored postings. The same names are used as FT index
// attributes, so renaming any of them requires an index rebuild.
const (
	FieldJobID              = "job_id"
	FieldCompanyName        = "company_name"
	FieldTitleClean         = "title_clean"
	FieldTitleNormalized    = "title_normalized"
	FieldLocation           = "location"
	FieldLocationNormalized = "location_normalized"
	FieldRemoteAllowed      = "remote_allowed"
	FieldCombinedSkills     = "combined_skills"
	FieldDocument           = "__content"
	FieldVector             = "__vector"
)

// JobPosting is a single indexed job with its normalized metadata.
// Postings are written by the build pipeline and read-only during search.
type JobPosting struct {
	JobID              string
	CompanyName        string
	TitleClean         string
	TitleNormalized    string
	Location           string
	LocationNormalized string
	RemoteAllowed      bool
	CombinedSkills     string
	Document           string
}

// requiredFields must be present in every stored posting. A posting missing
// any of them is rejected at the repository boundary instead of failing
// somewhere inside scoring.
var requiredFields = []string{
	FieldJobID,
	FieldCompanyName,
	FieldTitleClean,
	FieldTitleNormalized,
	FieldLocation,
	FieldLocationNormalized,
	FieldRemoteAllowed,
	FieldCombinedSkills,
	FieldDocument,
}

// JobFromFields builds a validated JobPosting from stored hash fields.
// key is used only for error context.
func JobFromFields(key string, fields map[string]string) (JobPosting, error) {
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			return JobPosting{}, NewMissingField(f, key)
		}
	}

	return JobPosting{
		JobID:              fields[FieldJobID],
		CompanyName:        fields[FieldCompanyName],
		TitleClean:         fields[FieldTitleClean],
		TitleNormalized:    fields[FieldTitleNormalized],
		Location:           fields[FieldLocation],
		LocationNormalized: fields[FieldLocationNormalized],
		RemoteAllowed:      fields[FieldRemoteAllowed] == "1",
		CombinedSkills:     fields[FieldCombinedSkills],
		Document:           fields[FieldDocument],
	}, nil
}

// Fields returns the hash representation of the posting (without the vector).
func (j JobPosting) Fields() map[string]string {
	remote := "0"
	if j.RemoteAllowed {
		remote = "1"
	}
	return map[string]string{
		FieldJobID:              j.JobID,
		FieldCompanyName:        j.CompanyName,
		FieldTitleClean:         j.TitleClean,
		FieldTitleNormalized:    j.TitleNormalized,
		FieldLocation:           j.Location,
		FieldLocationNormalized: j.LocationNormalized,
		FieldRemoteAllowed:      remote,
		FieldCombinedSkills:     j.CombinedSkills,
		FieldDocument:           j.Document,
	}
}

// Skills splits the comma-joined combined_skills list into individual skills.
func (j JobPosting) Skills() []string {
	if j.CombinedSkills == "" {
		return nil
	}
	parts := strings.Split(j.CombinedSkills, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			skills = append(skills, p)
		}
	}
	return skills
}

// URL returns the public listing URL for the posting.
func (j JobPosting) URL() string {
	return "https://www.linkedin.com/jobs/view/" + j.JobID
}
