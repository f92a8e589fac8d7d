package npm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// PackageInfo is the subset of the npm registry document the metrics use,
// plus the download counts fetched from the downloads API.
type PackageInfo struct {
	Name     string            `json:"name"`
	Homepage string            `json:"homepage,omitempty"`
	DistTags map[string]string `json:"dist-tags,omitempty"`
	Versions Versions          `json:"versions"`
	Time     Timeline          `json:"time"`

	// Downloads is not part of the registry document. The client fills it
	// from the downloads API after the registry lookup.
	Downloads Downloads `json:"downloads"`
}

// Downloads holds the install counts of a package.
type Downloads struct {
	// LastMonth counts installs between one month ago and today.
	LastMonth float64 `json:"lastMonth"`

	// MonthBefore counts installs between two months ago and one month ago.
	// It is only meaningful when HasMonthBefore is true, which requires the
	// package to be at least two months old.
	MonthBefore    float64 `json:"monthBefore"`
	HasMonthBefore bool    `json:"hasMonthBefore"`

	// All counts installs since the package was created.
	All float64 `json:"all"`
}

// Repository is the source location declared in a version manifest.
// The registry accepts both a bare URL string and a {type, url} object.
type Repository struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url"`
}

// UnmarshalJSON accepts the string and object forms.
func (r *Repository) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.URL = s
		return nil
	}

	type plain Repository
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode repository: %w", err)
	}
	*r = Repository(p)
	return nil
}

// Version is one published version manifest.
type Version struct {
	Version    string      `json:"version"`
	Homepage   string      `json:"homepage,omitempty"`
	Repository *Repository `json:"repository,omitempty"`
}

// RepositoryURL returns the declared repository URL, or "".
func (v Version) RepositoryURL() string {
	if v.Repository == nil {
		return ""
	}
	return v.Repository.URL
}

// Versions keeps the version manifests in registry document order.
// The registry lists versions in publication order, so the last entry is
// the most recently published one.
type Versions struct {
	names  []string
	byName map[string]Version
}

// NewVersions builds Versions from manifests in the given order.
func NewVersions(vs ...Version) Versions {
	out := Versions{byName: make(map[string]Version, len(vs))}
	for _, v := range vs {
		out.add(v.Version, v)
	}
	return out
}

func (vs *Versions) add(name string, v Version) {
	if vs.byName == nil {
		vs.byName = make(map[string]Version)
	}
	if _, ok := vs.byName[name]; !ok {
		vs.names = append(vs.names, name)
	}
	vs.byName[name] = v
}

// Len returns the number of versions.
func (vs Versions) Len() int {
	return len(vs.names)
}

// Names returns the version names in document order.
func (vs Versions) Names() []string {
	return slices.Clone(vs.names)
}

// Get returns the manifest of the named version.
func (vs Versions) Get(name string) (Version, bool) {
	v, ok := vs.byName[name]
	return v, ok
}

// Last returns the last version in document order.
func (vs Versions) Last() (Version, bool) {
	if len(vs.names) == 0 {
		return Version{}, false
	}
	return vs.byName[vs.names[len(vs.names)-1]], true
}

// UnmarshalJSON decodes the versions object keeping key order.
func (vs *Versions) UnmarshalJSON(data []byte) error {
	*vs = Versions{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to decode versions: %w", err)
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("failed to decode versions: expected an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to decode versions: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return errors.New("failed to decode versions: expected a version key")
		}

		var v Version
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("failed to decode version %s: %w", name, err)
		}
		vs.add(name, v)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to decode versions: %w", err)
	}
	return nil
}

// MarshalJSON encodes the versions as an object in document order.
func (vs Versions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range vs.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(vs.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Timeline is the registry "time" object: creation and modification
// timestamps plus one publication timestamp per version.
type Timeline struct {
	Created  time.Time
	Modified time.Time
	Releases map[string]time.Time
}

// UnmarshalJSON decodes the time object. The "unpublished" entry and any
// value that is not a timestamp are skipped.
func (t *Timeline) UnmarshalJSON(data []byte) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to decode time: %w", err)
	}

	*t = Timeline{Releases: make(map[string]time.Time, len(entries))}
	for key, raw := range entries {
		if key == "unpublished" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			continue
		}

		switch key {
		case "created":
			t.Created = ts
		case "modified":
			t.Modified = ts
		default:
			t.Releases[key] = ts
		}
	}
	return nil
}

// MarshalJSON encodes the timeline back into the registry shape.
func (t Timeline) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(t.Releases)+2)
	if !t.Created.IsZero() {
		out["created"] = t.Created.Format(time.RFC3339Nano)
	}
	if !t.Modified.IsZero() {
		out["modified"] = t.Modified.Format(time.RFC3339Nano)
	}
	for k, v := range t.Releases {
		out[k] = v.Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// ReleaseTimes returns the publication timestamps in chronological order.
func (t Timeline) ReleaseTimes() []time.Time {
	out := make([]time.Time, 0, len(t.Releases))
	for _, ts := range t.Releases {
		out = append(out, ts)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}
