package github

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/collaby/collaby-bot/internal/upstream"
	"github.com/google/go-github/v84/github"
	"github.com/pkg/errors"
)

// classify maps a go-github failure onto the upstream taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return &upstream.Error{Service: service, Kind: upstream.RateLimited, Status: statusOf(rle.Response), Cause: err}
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		return &upstream.Error{Service: service, Kind: upstream.RateLimited, Status: statusOf(arle.Response), Cause: err}
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		status := statusOf(er.Response)
		if status == http.StatusUnprocessableEntity && !alreadyExists(er) {
			return &upstream.Error{Service: service, Kind: upstream.Invalid, Status: status, Cause: err}
		}
		return upstream.Classify(service, status, err)
	}
	return upstream.Classify(service, 0, err)
}

func alreadyExists(er *github.ErrorResponse) bool {
	if strings.Contains(strings.ToLower(er.Message), "already exists") {
		return true
	}
	for _, e := range er.Errors {
		if e.Code == "already_exists" || strings.Contains(strings.ToLower(e.Message), "already exists") {
			return true
		}
	}
	return false
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

var graphQLStatus = regexp.MustCompile(`status code: (\d{3})`)

// classifyGraphQL maps a githubv4 failure onto the upstream taxonomy.
// githubv4 reports HTTP failures only through the error text.
func classifyGraphQL(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if m := graphQLStatus.FindStringSubmatch(msg); m != nil {
		status, _ := strconv.Atoi(m[1])
		return upstream.Classify(service, status, err)
	}
	switch {
	case strings.Contains(msg, "Could not resolve to a Repository"):
		return &upstream.Error{Service: service, Kind: upstream.NotFound, Cause: err}
	case strings.Contains(strings.ToLower(msg), "rate limit"):
		return &upstream.Error{Service: service, Kind: upstream.RateLimited, Cause: err}
	}
	return upstream.Classify(service, 0, err)
}
