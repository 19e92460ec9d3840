// Package keypool rotates a fixed set of api credentials, remembering which
// ones have burned through their quota across process restarts.
package keypool

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var ErrNoKeys = errors.New("no usable api keys remain")

// Manager tracks the active credential and the set of exhausted ones. The
// pipeline stages run single-threaded, so the manager does no locking; wrap
// it yourself if that ever changes.
type Manager struct {
	keys      []string
	current   int
	exhausted map[int]bool
	statePath string
}

type state struct {
	CurrentIndex     int    `json:"current_index"`
	ExhaustedIndices []int  `json:"exhausted_indices"`
	LastUpdated      string `json:"last_updated"`
}

// New builds a manager over keys, dropping empty entries. statePath is the
// json file rotation state persists to; an absent or unreadable file means a
// fresh pool. Pass an empty statePath to keep state in memory only.
func New(keys []string, statePath string) *Manager {
	var filtered []string
	for _, k := range keys {
		if k != "" {
			filtered = append(filtered, k)
		}
	}
	m := &Manager{
		keys:      filtered,
		exhausted: map[int]bool{},
		statePath: statePath,
	}
	m.load()
	return m
}

func (m *Manager) load() {
	if m.statePath == "" {
		return
	}
	raw, err := os.ReadFile(m.statePath)
	if err != nil {
		return
	}
	var s state
	if err := json.Unmarshal(raw, &s); err != nil {
		slog.Warn("ignoring corrupt key state file", "path", m.statePath, "err", err)
		return
	}
	if s.CurrentIndex >= 0 && s.CurrentIndex < len(m.keys) {
		m.current = s.CurrentIndex
	}
	for _, i := range s.ExhaustedIndices {
		if i >= 0 && i < len(m.keys) {
			m.exhausted[i] = true
		}
	}
}

func (m *Manager) save() {
	if m.statePath == "" {
		return
	}
	s := state{
		CurrentIndex: m.current,
		LastUpdated:  time.Now().UTC().Format(time.RFC3339),
	}
	for i := range m.keys {
		if m.exhausted[i] {
			s.ExhaustedIndices = append(s.ExhaustedIndices, i)
		}
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		slog.Warn("failed to encode key state", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.statePath), 0755); err != nil {
		slog.Warn("failed to create key state dir", "err", err)
		return
	}
	if err := os.WriteFile(m.statePath, raw, 0644); err != nil {
		slog.Warn("failed to persist key state", "path", m.statePath, "err", err)
	}
}

// Size reports how many keys the pool holds, exhausted or not.
func (m *Manager) Size() int {
	return len(m.keys)
}

// Current returns the active key, skipping forward past exhausted entries.
// Returns ErrNoKeys once every key in the pool is exhausted.
func (m *Manager) Current() (string, error) {
	if len(m.keys) == 0 {
		return "", ErrNoKeys
	}
	for range m.keys {
		if !m.exhausted[m.current] {
			return m.keys[m.current], nil
		}
		m.current = (m.current + 1) % len(m.keys)
	}
	return "", ErrNoKeys
}

// Rotate marks the active key exhausted and advances to the next usable one,
// persisting the new state. It reports whether a usable key was found.
// Single-key pools never rotate: burning the only key would leave nothing to
// fall back to, so the pool is left untouched.
func (m *Manager) Rotate(reason string) bool {
	if len(m.keys) <= 1 {
		return false
	}
	from := m.current
	m.exhausted[from] = true
	for i := 1; i <= len(m.keys); i++ {
		next := (from + i) % len(m.keys)
		if !m.exhausted[next] {
			m.current = next
			m.save()
			slog.Info("rotated api key",
				"from", from+1, "to", next+1, "reason", reason,
				"remaining", m.activeCount())
			return true
		}
	}
	slog.Error("all api keys exhausted", "total", len(m.keys), "reason", reason)
	return false
}

// Reset clears the exhausted set, for operators refilling quota out of band.
func (m *Manager) Reset() {
	m.exhausted = map[int]bool{}
	m.current = 0
	m.save()
	slog.Info("key pool reset", "total", len(m.keys))
}

type Status struct {
	Total     int
	Active    int
	Exhausted []int
	Current   int
}

func (m *Manager) Status() Status {
	s := Status{
		Total:   len(m.keys),
		Active:  m.activeCount(),
		Current: m.current,
	}
	for i := range m.keys {
		if m.exhausted[i] {
			s.Exhausted = append(s.Exhausted, i)
		}
	}
	return s
}

func (m *Manager) activeCount() int {
	n := 0
	for i := range m.keys {
		if !m.exhausted[i] {
			n++
		}
	}
	return n
}
