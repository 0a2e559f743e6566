package ticket

import (
	"errors"
	"net/http"

	jira "github.com/andygrunwald/go-jira/v2/cloud"

	"labops/runsweep/pkg/httpclient"
	"labops/runsweep/pkg/lifecycle"
)

// IssueRequest describes a ticket to create.
type IssueRequest struct {
	Summary     string
	IssueTypeID string
	ProjectID   string
	ReporterID  string
	PriorityID  string
	Description string

	// Assay, when set, is written to the assay custom field.
	Assay string
}

// CreatedIssue is the response to an issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Transition is a workflow transition available on an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// toIssue keeps the fields needed for reconciliation. The assay lives in
// a custom field whose id is configured, so it is read from Unknowns.
func toIssue(raw *jira.Issue, assayField string) lifecycle.Issue {
	issue := lifecycle.Issue{ID: raw.ID, Key: raw.Key}
	if raw.Fields == nil {
		return issue
	}
	issue.Summary = raw.Fields.Summary
	issue.TypeID = raw.Fields.Type.ID
	if raw.Fields.Status != nil {
		issue.Status = raw.Fields.Status.Name
	}
	issue.Assay = optionValue(raw.Fields.Unknowns[assayField])
	return issue
}

// optionValue returns the first value of a select-list custom field.
func optionValue(field any) string {
	options, ok := field.([]any)
	if !ok || len(options) == 0 {
		return ""
	}
	option, ok := options[0].(map[string]any)
	if !ok {
		return ""
	}
	value, _ := option["value"].(string)
	return value
}

// apiError classifies a failed call by its HTTP status so the CLI can
// tell authentication failures from outages.
func apiError(resp *jira.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Join(&httpclient.AuthError{Service: "ticket", Message: resp.Status}, err)
	}
	return errors.Join(&httpclient.APIError{Service: "ticket", StatusCode: resp.StatusCode, Message: err.Error()}, err)
}
