package domain

import (
	"errors"
	"reflect"
	"testing"
)

func validFields() map[string]string {
	return map[string]string{
		FieldJobID:              "123456",
		FieldCompanyName:        "Acme",
		FieldTitleClean:         "Senior Python Developer",
		FieldTitleNormalized:    "senior-level software developer",
		FieldLocation:           "Austin, TX",
		FieldLocationNormalized: "austin, texas",
		FieldRemoteAllowed:      "1",
		FieldCombinedSkills:     "python, amazon web services, docker",
		FieldDocument:           "Title: Senior Python Developer, Location: Austin, TX",
	}
}

func TestJobFromFields(t *testing.T) {
	job, err := JobFromFields("jobdex:jobs:123456", validFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.JobID != "123456" {
		t.Errorf("JobID = %q", job.JobID)
	}
	if !job.RemoteAllowed {
		t.Error("expected remote_allowed to parse as true")
	}
	if job.LocationNormalized != "austin, texas" {
		t.Errorf("LocationNormalized = %q", job.LocationNormalized)
	}
}

func TestJobFromFields_MissingRequired(t *testing.T) {
	for _, field := range []string{FieldJobID, FieldCompanyName, FieldRemoteAllowed, FieldCombinedSkills} {
		t.Run(field, func(t *testing.T) {
			fields := validFields()
			delete(fields, field)

			_, err := JobFromFields("jobdex:jobs:123456", fields)
			if !errors.Is(err, ErrMissingMetadata) {
				t.Fatalf("expected ErrMissingMetadata, got %v", err)
			}

			var mf *MissingFieldError
			if !errors.As(err, &mf) || mf.Field != field {
				t.Errorf("expected MissingFieldError for %q, got %v", field, err)
			}
		})
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	job, err := JobFromFields("k", validFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := JobFromFields("k", job.Fields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored != job {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", restored, job)
	}
}

func TestSkills(t *testing.T) {
	job := JobPosting{CombinedSkills: "python, docker,  kubernetes , "}
	want := []string{"python", "docker", "kubernetes"}
	if got := job.Skills(); !reflect.DeepEqual(got, want) {
		t.Errorf("Skills() = %v, want %v", got, want)
	}

	var empty JobPosting
	if got := empty.Skills(); got != nil {
		t.Errorf("Skills() on empty posting = %v, want nil", got)
	}
}

func TestURL(t *testing.T) {
	job := JobPosting{JobID: "98765"}
	want := "https://www.linkedin.com/jobs/view/98765"
	if got := job.URL(); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}
