package metric

import (
	"fmt"
	"time"

	"github.com/nao1215/depscout/internal/github"
	"github.com/nao1215/depscout/internal/model"
	"github.com/nao1215/depscout/internal/npm"
	"github.com/nao1215/depscout/internal/rules"
	"github.com/nao1215/depscout/internal/scoring"
	"github.com/nao1215/depscout/internal/scraper"
)

// Metric ids.
const (
	Age                       = "age"
	Releases                  = "releases"
	ReleaseRate               = "releaseRate"
	Downloads                 = "downloads"
	DownloadsRate             = "downloadsRate"
	HasHomepage               = "hasHomepage"
	LastCommitDaysAgo         = "lastCommitDaysAgo"
	OldestOpenIssueDaysAgo    = "oldestOpenIssueDaysAgo"
	OldestPullRequestDaysAgo  = "oldestPullRequestDaysAgo"
	IssueClosingCount         = "issueClosingCount"
	IssueClosingInterval      = "issueClosingInterval"
	IssueAvgClosingTime       = "issueAvgClosingTime"
	CommitsPeriod             = "commitsPeriod"
	StarsRate                 = "starsRate"
	CommitsRate               = "commitsRate"
	DownloadsGrowth           = "downloadsGrowth"
	IssueClosingRate          = "issueClosingRate"
	OldestIssueActivity       = "oldestIssueActivity"
	OldestPullRequestActivity = "oldestPullRequestActivity"
)

// youngProjectDays is the age under which issue and pull request activity
// is not judged.
const youngProjectDays = 30

var bound = rules.Bound

// Builtin returns the standard metric definitions. now is the reference
// time for every "days ago" metric.
func Builtin(now func() time.Time) []Definition {
	if now == nil {
		now = time.Now
	}
	daysAgo := func(t time.Time) float64 {
		return now().Sub(t).Hours() / 24
	}

	return []Definition{
		{
			ID:   Age,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				repo, err := repository(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if repo.CreatedAt.IsZero() {
					return model.Metric{}, fmt.Errorf("%w: repository has no creation date", model.ErrExtraction)
				}
				return model.Value(daysAgo(repo.CreatedAt)), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessageCons, Max: bound(121), Message: "Is very young ({{humanize .Value}})"},
				{Type: model.MessageNote, Min: bound(121), Max: bound(181), Message: "Is not young but also not really mature ({{humanize .Value}})"},
				{Type: model.MessagePro, Min: bound(182), Message: "Has been around for a while ({{humanize .Value}} ago)"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 0}, {90, 5}, {365, 20}, {730, 27}, {1460, 40}}),
		},
		{
			ID:   Releases,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				info, err := npmInfo(raw)
				if err != nil {
					return model.Metric{}, err
				}
				return model.Value(float64(info.Versions.Len())), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Min: bound(35), Message: "There are many releases ({{.Value}} releases)"},
				{Type: model.MessageNote, Min: bound(15), Max: bound(34), Message: "There are not so many releases ({{.Value}} releases)"},
				{Type: model.MessageCons, Max: bound(14), Message: "Few releases have been published ({{.Value}} releases)"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 0}, {5, 1}, {10, 5}, {20, 15}, {35, 25}, {50, 50}, {100, 150}}),
		},
		{
			ID:   ReleaseRate,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				info, err := npmInfo(raw)
				if err != nil {
					return model.Metric{}, err
				}
				return releaseRate(info.Time.ReleaseTimes(), now()), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Min: bound(1.0 / 15), Message: "Releases are frequent ({{rate .Value}})"},
				{Type: model.MessageNote, Min: bound(1.0 / 30), Max: bound(1.0 / 15), Message: "Releases are not so frequent ({{rate .Value}})"},
				{Type: model.MessageCons, Max: bound(1 / 30.001), Message: "Releases are sporadic ({{rate .Value}})"},
			}}),
			Score: scoring.MustCurve([][2]float64{{1.0 / 90, 0}, {1.0 / 60, 2}, {1.0 / 40, 5}, {1.0 / 30, 10}, {1.0 / 15, 30}, {1.0 / 5, 100}}),
		},
		{
			ID:   Downloads,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				info, err := npmInfo(raw)
				if err != nil {
					return model.Metric{}, err
				}
				return model.Value(info.Downloads.All), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Min: bound(1000000), Message: "Is widely adopted ({{number .Value}} total installs)"},
				{Type: model.MessageNote, Min: bound(200000), Max: bound(999999), Message: "Is moderately adopted ({{number .Value}} total installs)"},
				{Type: model.MessageCons, Max: bound(199999), Message: "Is not adopted by many projects ({{number .Value}} total installs)"},
			}}),
			// Total installs weighted down by age: a decade-old package
			// needs ten times the installs of a one-year-old one.
			Score: scoring.Func(func(v float64, computed *model.Metrics) float64 {
				return (v / 100) * (1 / (computed.Value(Age) / 10))
			}),
		},
		{
			ID:   DownloadsRate,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				info, err := npmInfo(raw)
				if err != nil {
					return model.Metric{}, err
				}
				return model.Value(info.Downloads.LastMonth / 30), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Min: bound(51), Message: "Was installed a lot this month ({{rate .Value}})"},
				{Type: model.MessageNote, Min: bound(21), Max: bound(50), Message: "Last month not a lot of people installed it ({{rate .Value}})"},
				{Type: model.MessageCons, Max: bound(20), Message: "Was installed rarely last month ({{rate .Value}})"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 0}, {50, 5}, {500, 250}, {1000, 300}, {10000, 600}, {100000, 1000}, {1000000, 2000}}),
		},
		{
			ID:   HasHomepage,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				repo, err := repository(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if repo.Homepage != "" {
					return model.Value(1), nil
				}
				return model.Value(0), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Min: bound(1), Max: bound(1), Message: "Has a dedicated website"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 0}, {1, 50}}),
		},
		{
			ID:   LastCommitDaysAgo,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if data.LastCommit == nil || data.LastCommit.Commit.Author.Date.IsZero() {
					return model.Metric{}, fmt.Errorf("%w: repository has no commits", model.ErrExtraction)
				}
				return model.Value(daysAgo(data.LastCommit.Commit.Author.Date)), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Max: bound(3), Message: "Last commit was done recently ({{humanize .Value}} ago)"},
				{Type: model.MessageNote, Min: bound(4), Max: bound(15), Message: "Last commit is not so recent ({{humanize .Value}})"},
				{Type: model.MessageCons, Min: bound(15), Message: "Last commit is not recent ({{humanize .Value}})"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 20}, {7, 10}, {30, 0}, {60, 0}}),
		},
		{
			ID:   OldestOpenIssueDaysAgo,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if data.OldestOpenIssue == nil {
					return model.NotApplicable(), nil
				}
				return model.Value(daysAgo(data.OldestOpenIssue.CreatedAt)), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Max: bound(15), Message: "Oldest open issue is quite recent ({{humanize .Value}} ago)"},
				{Type: model.MessageNote, Min: bound(16), Max: bound(30), Message: "Oldest open issue is growing old ({{humanize .Value}})"},
				{Type: model.MessageCons, Min: bound(31), Message: "Oldest open issue is very old ({{humanize .Value}})"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 30}, {30, 0}, {60, 0}}, scoring.WithLinear()),
		},
		{
			ID:   OldestPullRequestDaysAgo,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if data.OldestPR == nil || data.OldestPR.CreatedAt.IsZero() {
					return model.NotApplicable(), nil
				}
				return model.Value(daysAgo(data.OldestPR.CreatedAt)), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Max: bound(10), Message: "Oldest open pull request is very recent ({{humanize .Value}})"},
				{Type: model.MessageNote, Min: bound(11), Max: bound(30), Message: "Oldest open pull request is not recent ({{humanize .Value}})"},
				{Type: model.MessageCons, Min: bound(30), Message: "Oldest open pull request is very old ({{humanize .Value}})"},
			}}),
			Score: scoring.MustCurve([][2]float64{{30, 0}, {20, 5}, {15, 15}, {10, 30}, {5, 100}}),
		},
		{
			ID:   IssueClosingCount,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				return model.Value(float64(len(data.LastClosedIssues))), nil
			},
		},
		{
			ID:   IssueClosingInterval,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if len(data.LastClosedIssues) == 0 {
					return model.NotApplicable(), nil
				}
				oldest := data.LastClosedIssues[len(data.LastClosedIssues)-1]
				return model.Value(daysAgo(oldest.CreatedAt)), nil
			},
		},
		{
			ID:   IssueAvgClosingTime,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				return averageClosingTime(data.LastClosedIssues), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Max: bound(5), Message: `Issues are closed fast (average of {{humanize .Value}} on {{.Data.Value "issueClosingCount"}} issues)`},
				{Type: model.MessageNote, Min: bound(6), Max: bound(10), Message: `Closing issues tooks some time (average of {{humanize .Value}} on {{.Data.Value "issueClosingCount"}} issues)`},
				{Type: model.MessageCons, Min: bound(11), Message: `Issues took a lot of time to be closed (average of {{humanize .Value}} on {{.Data.Value "issueClosingCount"}} issues)`},
			}}),
			Score: scoring.MustCurve([][2]float64{{30, 0}, {15, 5}, {7, 15}, {3, 30}, {2, 100}, {1, 300}, {0.5, 500}}),
		},
		{
			ID:   CommitsPeriod,
			Pass: 1,
			Extract: func(raw model.RawData, _ *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if data.CommitsStats == nil {
					return model.Value(0), nil
				}
				return model.Value(float64(len(data.CommitsStats.All) * 7)), nil
			},
		},
		{
			ID:   StarsRate,
			Pass: 2,
			Extract: func(raw model.RawData, computed *model.Metrics) (model.Metric, error) {
				repo, err := repository(raw)
				if err != nil {
					return model.Metric{}, err
				}
				age := computed.Value(Age)
				if age <= 0 {
					return model.NotApplicable(), nil
				}
				return model.Value(repo.StargazersCount / age), nil
			},
			Rules: rules.Must(rules.RuleSet{
				Postfix: "({{rate .Value}})",
				Rules: []rules.Rule{
					{Type: model.MessageCons, Max: bound(0.070), Message: "Does not get many stars"},
					{Type: model.MessageNote, Min: bound(0.071), Max: bound(0.50), Message: "Gets a good amount of stars but not extraordinary"},
					{Type: model.MessagePro, Min: bound(0.51), Message: "Gets a lot of stars"},
				},
			}),
			Score: scoring.MustCurve([][2]float64{{0, 0}, {1.0 / 7, 5}, {1.0 / 2, 15}, {1, 25}, {10, 50}, {24, 150}, {50, 300}, {200, 700}}),
		},
		{
			ID:   CommitsRate,
			Pass: 2,
			Extract: func(raw model.RawData, computed *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if data.CommitsStats == nil || len(data.CommitsStats.All) == 0 {
					return model.Value(0), nil
				}
				var total int
				for _, n := range data.CommitsStats.All {
					total += n
				}
				return model.Value(float64(total) / computed.Value(CommitsPeriod)), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessageCons, Min: bound(0.001), Max: bound(0.140), Message: "Commits are sporadic ({{rate .Value}})"},
				{Type: model.MessageNote, Min: bound(0.141), Max: bound(0.250), Message: "Commits are not frequent ({{rate .Value}})"},
				{Type: model.MessagePro, Min: bound(0.251), Message: "Commits are frequent ({{rate .Value}})"},
				{Type: model.MessageCons, Min: bound(0), Max: bound(0), Message: `There were no commits in the last {{.Data.Value "commitsPeriod"}} days`},
			}}),
			Score: scoring.MustCurve([][2]float64{{1.0 / 8, 0}, {1.0 / 7, 15}, {1, 50}, {10, 100}}),
		},
		{
			ID:   DownloadsGrowth,
			Pass: 2,
			Extract: func(raw model.RawData, computed *model.Metrics) (model.Metric, error) {
				info, err := npmInfo(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if !info.Downloads.HasMonthBefore {
					return model.Value(0), nil
				}
				if info.Downloads.MonthBefore == 0 {
					return model.NotApplicable(), nil
				}
				return model.Value(computed.Value(DownloadsRate)/(info.Downloads.MonthBefore/30) - 1), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Min: bound(0.100), Message: "Adoption is growing fast ({{growth .Value}} installs this month vs month before)"},
				{Type: model.MessageNote, Min: bound(0), Max: bound(0.099), Message: "Adoption is slow ({{growth .Value}} installs this month vs month before)"},
				{Type: model.MessageCons, Max: bound(0), Message: "Adoption is dropping ({{growth .Value}} installs this month vs month before)"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 0}, {0.01, 2}, {0.1, 10}, {0.5, 25}, {1, 40}, {2, 300}, {5, 1000}, {10, 1500}}),
		},
		{
			ID:   IssueClosingRate,
			Pass: 2,
			Extract: func(_ model.RawData, computed *model.Metrics) (model.Metric, error) {
				interval := computed.Value(IssueClosingInterval)
				if interval <= 0 {
					return model.NotApplicable(), nil
				}
				return model.Value(computed.Value(IssueClosingCount) / interval), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Min: bound(0.300), Message: `A good number of issues were closed ({{rate .Value}} in the last {{humanize (.Data.Value "issueClosingInterval")}})`},
				{Type: model.MessageNote, Min: bound(0.100), Max: bound(0.299), Message: `A moderate number of issues were closed ({{rate .Value}} in the last {{humanize (.Data.Value "issueClosingInterval")}})`},
				{Type: model.MessageCons, Max: bound(0.099), Message: `Not a lot of issues were closed ({{rate .Value}} in the last {{humanize (.Data.Value "issueClosingInterval")}})`},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 0}, {0.150, 5}, {0.300, 10}, {1, 100}, {5, 300}, {10, 500}, {100, 2000}}),
		},
		{
			ID:   OldestIssueActivity,
			Pass: 2,
			Extract: func(raw model.RawData, computed *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if data.OldestOpenIssue == nil || computed.Value(Age) < youngProjectDays {
					return model.NotApplicable(), nil
				}
				return model.ValueWithExtra(daysAgo(data.OldestOpenIssue.UpdatedAt), map[string]string{
					"url": data.OldestOpenIssue.HTMLURL,
				}), nil
			},
			Rules: rules.Must(rules.RuleSet{Rules: []rules.Rule{
				{Type: model.MessagePro, Max: bound(10), Message: "Oldest open issue is still active (updated {{humanize .Value}} ago) - {{.Extra.url}}"},
				{Type: model.MessageNote, Min: bound(11), Max: bound(20), Message: "Oldest open issue has been dead for a while (updated {{humanize .Value}} ago) - {{.Extra.url}}"},
				{Type: model.MessageCons, Min: bound(21), Message: "Oldest open issue is dead (updated {{humanize .Value}} ago) - {{.Extra.url}}"},
			}}),
			Score: scoring.MustCurve([][2]float64{{0, 30}, {30, 0}, {60, 0}}),
		},
		{
			ID:   OldestPullRequestActivity,
			Pass: 2,
			Extract: func(raw model.RawData, computed *model.Metrics) (model.Metric, error) {
				data, err := githubData(raw)
				if err != nil {
					return model.Metric{}, err
				}
				if data.OldestPR == nil || data.OldestPR.UpdatedAt.IsZero() {
					return model.NotApplicable(), nil
				}
				if computed.Value(Age) < youngProjectDays {
					return model.NotApplicable(), nil
				}
				return model.ValueWithExtra(daysAgo(data.OldestPR.UpdatedAt), map[string]string{
					"url": data.OldestPR.HTMLURL,
				}), nil
			},
			Rules: rules.Must(rules.RuleSet{
				Postfix: "(updated {{humanize .Value}} ago) - {{.Extra.url}}",
				Rules: []rules.Rule{
					{Type: model.MessagePro, Max: bound(10), Message: "Oldest open pull request is still active"},
					{Type: model.MessageNote, Min: bound(11), Max: bound(20), Message: "Oldest open pull request has been inactive for some time"},
					{Type: model.MessageCons, Min: bound(21), Message: "Oldest open pull request is dead"},
				},
			}),
			Score: scoring.MustCurve([][2]float64{{30, 0}, {20, 5}, {15, 15}, {10, 30}, {5, 100}}),
		},
	}
}

// DefaultRegistry returns a registry of the built-in definitions.
func DefaultRegistry(now func() time.Time) *Registry {
	r, err := NewRegistry(Builtin(now)...)
	if err != nil {
		panic(err)
	}
	return r
}

func npmInfo(raw model.RawData) (*npm.PackageInfo, error) {
	return model.Fragment[*npm.PackageInfo](raw, scraper.NPMName)
}

func githubData(raw model.RawData) (*github.RepoData, error) {
	return model.Fragment[*github.RepoData](raw, scraper.GitHubName)
}

func repository(raw model.RawData) (*github.Repo, error) {
	data, err := githubData(raw)
	if err != nil {
		return nil, err
	}
	if data.Repo == nil {
		return nil, fmt.Errorf("%w: no repository document", model.ErrExtraction)
	}
	return data.Repo, nil
}

// releaseRate is the number of releases per day: the inverse of the mean
// interval between consecutive releases, the last one running until now.
func releaseRate(times []time.Time, now time.Time) model.Metric {
	if len(times) == 0 {
		return model.NotApplicable()
	}

	var total float64
	for i, t := range times {
		next := now
		if i+1 < len(times) {
			next = times[i+1]
		}
		total += next.Sub(t).Hours() / 24
	}

	mean := total / float64(len(times))
	if mean <= 0 {
		return model.NotApplicable()
	}
	return model.Value(1 / mean)
}

// averageClosingTime is the mean number of days between opening and
// closing of the given issues.
func averageClosingTime(issues []github.Issue) model.Metric {
	var total float64
	var n int
	for _, issue := range issues {
		if issue.ClosedAt == nil {
			continue
		}
		total += issue.ClosedAt.Sub(issue.CreatedAt).Hours() / 24
		n++
	}
	if n == 0 {
		return model.NotApplicable()
	}
	return model.Value(total / float64(n))
}
