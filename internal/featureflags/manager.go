// Package featureflags evaluates the FEATURE_FLAGS setting, e.g.
// "image_uploads=on,index_cache=on,comment_form=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flag names a switchable feature.
type Flag string

// Known flags.
const (
	// ImageUploads accepts image attachments on the post form.
	ImageUploads Flag = "image_uploads"
	// IndexCache serves the global feed through the page cache.
	IndexCache Flag = "index_cache"
)

// Manager holds parsed flag values. The zero value and nil disable everything.
type Manager struct {
	flags map[Flag]string
}

// NewManager parses a comma-separated key=value list. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[Flag]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[Flag(key)] = value
	}

	return &Manager{flags: out}
}

// On reports whether flag is switched on for everyone. Percentage rollouts
// count as on only at 100%.
func (m *Manager) On(flag Flag) bool {
	return m.Enabled(flag, 0)
}

// Enabled evaluates flag for a viewer. Values: on/true/1, off/false/0, or
// N% for a deterministic per-user rollout (anonymous viewers are excluded).
func (m *Manager) Enabled(flag Flag, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[Flag(normalize(string(flag)))]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(flag, userID) < pct
}

// Names lists configured flags in sorted order.
func (m *Manager) Names() []Flag {
	if m == nil {
		return nil
	}
	out := make([]Flag, 0, len(m.flags))
	for f := range m.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Snapshot returns evaluated flag status for one viewer.
func (m *Manager) Snapshot(userID uint) map[Flag]bool {
	out := map[Flag]bool{}
	for _, f := range m.Names() {
		out[f] = m.Enabled(f, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(flag Flag, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(string(flag)), userID)
	return int(h.Sum32() % 100)
}
