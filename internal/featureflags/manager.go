// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags the server consults.
const (
	Signup  = "signup"
	Swagger = "swagger"
)

// Manager holds flags parsed from a list such as "signup=on,swagger=off,beta=25%".
type Manager struct {
	flags map[string]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	flags := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		flags[key] = value
	}
	return &Manager{flags: flags}
}

// Enabled reports whether name is on for userID. Values are on/off
// (true/false, 1/0) or a percentage rolled out deterministically per user.
// Anonymous visitors (userID 0) only see percentage flags at 100%.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
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
	return bucket(name, userID) < pct
}

// EnabledForAll reports whether name is on regardless of who asks.
func (m *Manager) EnabledForAll(name string) bool {
	return m.Enabled(name, 0)
}

// Snapshot evaluates every configured flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
