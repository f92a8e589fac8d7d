package model

// Band is the pair of score thresholds used to judge packages.
// Scores below Low fail, scores from Low up to Good warn, scores above
// Good pass.
type Band struct {
	Low  int `json:"low" yaml:"low"`
	Good int `json:"good" yaml:"good"`
}

// Summary partitions a batch of analyzed packages into buckets.
//
// Banned and pre-approved packages are taken out before any score-based
// bucket is considered, banned first. A package scoring exactly Band.Good
// matches none of the score buckets; it neither fails nor counts as good.
// Packages whose analysis was aborted are listed in Errored and are not
// scored; they leave Success untouched but fail Passed.
type Summary struct {
	Band   Band `json:"band"`
	Strict bool `json:"strict"`

	Banned      []*Package `json:"banned"`
	PreApproved []*Package `json:"preApproved"`
	Failing     []*Package `json:"failing"`
	Warning     []*Package `json:"warning"`
	Good        []*Package `json:"good"`
	Errored     []*Package `json:"errored"`
}

// Classify builds the Summary for pkgs. Nil entries are skipped.
func Classify(pkgs []*Package, band Band, strict bool) *Summary {
	s := &Summary{
		Band:        band,
		Strict:      strict,
		Banned:      make([]*Package, 0),
		PreApproved: make([]*Package, 0),
		Failing:     make([]*Package, 0),
		Warning:     make([]*Package, 0),
		Good:        make([]*Package, 0),
		Errored:     make([]*Package, 0),
	}

	failBelow := band.Low
	if strict {
		failBelow = band.Good
	}

	for _, p := range pkgs {
		if p == nil {
			continue
		}

		switch {
		case p.Banned:
			s.Banned = append(s.Banned, p)
		case p.PreApproved:
			s.PreApproved = append(s.PreApproved, p)
		case p.Failed():
			s.Errored = append(s.Errored, p)
		case p.Score < failBelow:
			s.Failing = append(s.Failing, p)
		case !strict && p.Score >= band.Low && p.Score < band.Good:
			s.Warning = append(s.Warning, p)
		case p.Score > band.Good:
			s.Good = append(s.Good, p)
		}
	}

	return s
}

// Success reports whether no package is failing or banned.
func (s *Summary) Success() bool {
	return len(s.Failing) == 0 && len(s.Banned) == 0
}

// Passed reports whether the batch clears the gate: Success holds and
// every package was analyzed. A package that could not be scored is
// unknown, not good.
func (s *Summary) Passed() bool {
	return s.Success() && len(s.Errored) == 0
}

// Total returns the number of classified packages across all buckets.
func (s *Summary) Total() int {
	return len(s.Banned) + len(s.PreApproved) + len(s.Failing) +
		len(s.Warning) + len(s.Good) + len(s.Errored)
}
