package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/pkg/errors"
)

const searchPageSize = 100

// Sprint is the active sprint of a project with its issues and burndown.
type Sprint struct {
	ID          int
	Name        string
	Start       time.Time
	End         time.Time
	Issues      []Issue
	TotalPoints float64
	Burndown    []BurndownPoint
}

// BurndownPoint is the remaining story points at the end of one sprint day against the linear guideline.
type BurndownPoint struct {
	Date      time.Time
	Remaining float64
	Ideal     float64
}

type sprintField struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ActiveSprintJQL selects the issues of the open sprint of project.
func ActiveSprintJQL(project string) string {
	return fmt.Sprintf("project=%s AND sprint not in closedSprints() AND sprint not in futureSprints()", project)
}

// ActiveSprint returns the issues of the project's open sprint. Sprint dates come from the sprint custom field
// and are zero when the field is not populated.
func (j *Controller) ActiveSprint(ctx context.Context, token, siteID, project string) (*Sprint, error) {
	c, err := j.client(token, siteID)
	if err != nil {
		return nil, err
	}

	opts := &jira.SearchOptions{
		MaxResults: searchPageSize,
		Fields:     []string{"summary", "description", "assignee", "status", "resolutiondate", j.storyPointsField, j.sprintField},
	}
	sprint := &Sprint{}
	for {
		page, resp, err := c.Issue.SearchWithContext(ctx, ActiveSprintJQL(project), opts)
		if err != nil {
			return nil, errors.Wrapf(classify(resp, err), "failed to search the sprint of %s", project)
		}
		for i := range page {
			issue := j.toIssue(&page[i])
			sprint.Issues = append(sprint.Issues, *issue)
			sprint.TotalPoints += issue.StoryPoints
			if sprint.ID == 0 && page[i].Fields != nil {
				applySprintField(sprint, page[i].Fields.Unknowns[j.sprintField])
			}
		}
		opts.StartAt += len(page)
		if len(page) == 0 || resp == nil || opts.StartAt >= resp.Total {
			break
		}
	}
	sprint.Burndown = Burndown(sprint.Start, sprint.End, sprint.Issues)
	return sprint, nil
}

func applySprintField(sprint *Sprint, v any) {
	if v == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	var fields []sprintField
	if err = json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return
	}
	chosen := fields[0]
	for _, f := range fields {
		if f.State == "active" {
			chosen = f
			break
		}
	}
	sprint.ID = chosen.ID
	sprint.Name = chosen.Name
	sprint.Start, _ = time.Parse(time.RFC3339, chosen.StartDate)
	sprint.End, _ = time.Parse(time.RFC3339, chosen.EndDate)
}

// Burndown computes one point per day from start up to, but excluding, end.
// An issue stops counting against the remaining points from the day it was resolved.
func Burndown(start, end time.Time, issues []Issue) []BurndownPoint {
	first, last := day(start), day(end)
	if start.IsZero() || end.IsZero() || !first.Before(last) {
		return nil
	}

	var total float64
	for _, i := range issues {
		total += i.StoryPoints
	}
	days := int(last.Sub(first).Hours() / 24)
	points := make([]BurndownPoint, 0, days)
	for d := range days {
		date := first.AddDate(0, 0, d)
		remaining := total
		for _, i := range issues {
			if !i.ResolvedAt.IsZero() && !day(i.ResolvedAt).After(date) {
				remaining -= i.StoryPoints
			}
		}
		ideal := total
		if days > 1 {
			ideal = total - total*float64(d)/float64(days-1)
		}
		points = append(points, BurndownPoint{Date: date, Remaining: remaining, Ideal: ideal})
	}
	return points
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
