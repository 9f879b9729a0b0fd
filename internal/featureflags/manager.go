// Package featureflags evaluates simple config-driven feature flags
// with deterministic percentage rollouts.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// flag is a parsed flag value: fully on, fully off, or a rollout
// percentage applied per user.
type flag struct {
	on      bool
	percent int
}

// Manager evaluates feature flags defined in a comma-separated list,
// e.g. "message_search=on,new_feed=25%,legacy_profile=off".
type Manager struct {
	flags map[string]flag
}

// NewManager parses the flag list. Malformed pairs are dropped.
func NewManager(raw string) *Manager {
	out := make(map[string]flag)

	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := normalize(parts[0])
		f, ok := parseValue(normalize(parts[1]))
		if key == "" || !ok {
			continue
		}
		out[key] = f
	}

	return &Manager{flags: out}
}

func parseValue(value string) (flag, bool) {
	switch value {
	case "on", "true", "1":
		return flag{on: true}, true
	case "off", "false", "0":
		return flag{}, true
	}
	if pct, found := strings.CutSuffix(value, "%"); found {
		n, err := strconv.Atoi(pct)
		if err != nil || n < 0 || n > 100 {
			return flag{}, false
		}
		return flag{percent: n}, true
	}
	return flag{}, false
}

// Enabled reports whether a flag is on for the given user. Unknown
// flags are off. Percentage flags bucket users deterministically, so a
// user stays in or out of a rollout across requests; userID 0 (the
// anonymous bucket) never enters a partial rollout.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	f, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	if f.on {
		return true
	}
	if f.percent >= 100 {
		return true
	}
	if f.percent <= 0 || userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < f.percent
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
