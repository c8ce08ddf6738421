package als

import (
	"fmt"
	"sort"
)

// NoteChange is a track whose MIDI note count differs between two sets
type NoteChange struct {
	Track string `json:"track"`
	From  int    `json:"from"`
	To    int    `json:"to"`
}

// Diff is the musical difference between two sets
type Diff struct {
	TempoFrom      float64      `json:"tempo_from"`
	TempoTo        float64      `json:"tempo_to"`
	TracksAdded    []string     `json:"tracks_added,omitempty"`
	TracksRemoved  []string     `json:"tracks_removed,omitempty"`
	NoteChanges    []NoteChange `json:"note_changes,omitempty"`
	PluginsAdded   []Plugin     `json:"plugins_added,omitempty"`
	PluginsRemoved []Plugin     `json:"plugins_removed,omitempty"`
}

// Compare reports what changed from a to b. Tracks are matched by kind and
// name, plugins by format and name.
func Compare(a, b *Set) Diff {
	d := Diff{TempoFrom: a.Tempo, TempoTo: b.Tempo}

	before := indexTracks(a)
	after := indexTracks(b)

	for key, t := range after {
		old, ok := before[key]
		if !ok {
			d.TracksAdded = append(d.TracksAdded, t.Name)
			continue
		}
		if old.NoteCount != t.NoteCount {
			d.NoteChanges = append(d.NoteChanges, NoteChange{Track: t.Name, From: old.NoteCount, To: t.NoteCount})
		}
	}
	for key, t := range before {
		if _, ok := after[key]; !ok {
			d.TracksRemoved = append(d.TracksRemoved, t.Name)
		}
	}

	d.PluginsAdded = pluginsMissing(b.Plugins, a.Plugins)
	d.PluginsRemoved = pluginsMissing(a.Plugins, b.Plugins)

	sort.Strings(d.TracksAdded)
	sort.Strings(d.TracksRemoved)
	sort.Slice(d.NoteChanges, func(i, j int) bool { return d.NoteChanges[i].Track < d.NoteChanges[j].Track })
	return d
}

// Empty reports whether the sets are musically identical
func (d Diff) Empty() bool {
	return d.TempoFrom == d.TempoTo &&
		len(d.TracksAdded) == 0 && len(d.TracksRemoved) == 0 &&
		len(d.NoteChanges) == 0 &&
		len(d.PluginsAdded) == 0 && len(d.PluginsRemoved) == 0
}

// Lines renders the diff one change per line
func (d Diff) Lines() []string {
	var lines []string
	if d.TempoFrom != d.TempoTo {
		lines = append(lines, fmt.Sprintf("~ tempo %s -> %s BPM", FormatTempo(d.TempoFrom), FormatTempo(d.TempoTo)))
	}
	for _, t := range d.TracksAdded {
		lines = append(lines, "+ track "+t)
	}
	for _, t := range d.TracksRemoved {
		lines = append(lines, "- track "+t)
	}
	for _, c := range d.NoteChanges {
		lines = append(lines, fmt.Sprintf("~ %s: %d -> %d notes", c.Track, c.From, c.To))
	}
	for _, p := range d.PluginsAdded {
		lines = append(lines, "+ plugin "+p.String())
	}
	for _, p := range d.PluginsRemoved {
		lines = append(lines, "- plugin "+p.String())
	}
	return lines
}

func indexTracks(s *Set) map[string]Track {
	out := make(map[string]Track, len(s.Tracks))
	for _, t := range s.Tracks {
		key := t.Kind + "\x00" + t.Name
		// duplicate names fold into one entry with the combined note count
		if prev, ok := out[key]; ok {
			t.NoteCount += prev.NoteCount
		}
		out[key] = t
	}
	return out
}

func pluginsMissing(from, in []Plugin) []Plugin {
	have := make(map[string]bool, len(in))
	for _, p := range in {
		have[p.key()] = true
	}
	var out []Plugin
	for _, p := range from {
		if !have[p.key()] {
			out = append(out, p)
		}
	}
	return out
}
