// Package als reads Ableton Live Set documents.
//
// A Live Set on disk is gzip-compressed XML. Inside a livesnap repository the
// history holds the decompressed XML instead, so Parse accepts both.
package als

import (
	"bufio"
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	lserr "github.com/pders01/livesnap/internal/errors"
)

// DefaultTempo is used when a set does not record one
const DefaultTempo = 120.0

// ErrNotLiveSet is returned for documents that are not Live Sets
var ErrNotLiveSet = fmt.Errorf("%w: not an Ableton Live Set", lserr.ErrValidation)

// Track kinds, named after their XML elements
const (
	KindMidi   = "MidiTrack"
	KindAudio  = "AudioTrack"
	KindReturn = "ReturnTrack"
	KindGroup  = "GroupTrack"
	KindMain   = "MasterTrack"
	// Live 12 renamed the master track
	KindMainV12 = "MainTrack"
)

// Plugin formats
const (
	FormatVST       = "VST"
	FormatVST3      = "VST3"
	FormatAudioUnit = "Audio Unit"
)

// Set is the summary of a Live Set
type Set struct {
	Creator string   `json:"creator,omitempty"`
	Tempo   float64  `json:"tempo"`
	Tracks  []Track  `json:"tracks"`
	Plugins []Plugin `json:"plugins"`
}

// Track is one track of a set
type Track struct {
	Kind      string   `json:"kind"`
	Name      string   `json:"name"`
	Color     int      `json:"color"`
	NoteCount int      `json:"note_count"`
	Devices   []string `json:"devices,omitempty"`
}

// Plugin is a third-party plugin used somewhere in a set
type Plugin struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Vendor string `json:"vendor"`
}

func (p Plugin) String() string {
	return fmt.Sprintf("%s (%s, %s)", p.Name, p.Format, p.Vendor)
}

func (p Plugin) key() string {
	return p.Format + "\x00" + p.Name
}

// Open parses the Live Set at path
func Open(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, lserr.NewFilesystemError("open", path, err)
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, lserr.Wrapf(err, "%s", path)
	}
	return set, nil
}

// Parse reads a gzip-compressed or plain XML Live Set from r
func Parse(r io.Reader) (*Set, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var src io.Reader = br
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, lserr.Wrap(ErrNotLiveSet, err.Error())
		}
		defer zr.Close()
		src = zr
	}

	p := newParser()
	if err := p.run(xml.NewDecoder(src)); err != nil {
		return nil, err
	}
	return p.set, nil
}

var trackKinds = map[string]bool{
	KindMidi:    true,
	KindAudio:   true,
	KindReturn:  true,
	KindGroup:   true,
	KindMain:    true,
	KindMainV12: true,
}

// plugin info element -> format, name child, vendor child
var pluginInfos = map[string][3]string{
	"VstPluginInfo":  {FormatVST, "PlugName", "PluginVendor"},
	"Vst3PluginInfo": {FormatVST3, "Name", "Vendor"},
	"AuPluginInfo":   {FormatAudioUnit, "Name", "Manufacturer"},
}

type parser struct {
	set   *Set
	stack []string

	sawRoot  bool
	sawTempo bool

	track      *Track
	trackDepth int
	userName   string
	effective  string

	plugin      *Plugin
	pluginDepth int
	pluginInfo  [3]string
	seen        map[string]bool
}

func newParser() *parser {
	return &parser{
		set:  &Set{Tempo: DefaultTempo, Tracks: []Track{}, Plugins: []Plugin{}},
		seen: map[string]bool{},
	}
}

func (p *parser) run(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return lserr.Wrap(ErrNotLiveSet, err.Error())
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.stack = append(p.stack, t.Name.Local)
			if err := p.start(t); err != nil {
				return err
			}
		case xml.EndElement:
			p.end()
			p.stack = p.stack[:len(p.stack)-1]
		}
	}
	if !p.sawRoot {
		return ErrNotLiveSet
	}
	return nil
}

func (p *parser) parent() string {
	if len(p.stack) < 2 {
		return ""
	}
	return p.stack[len(p.stack)-2]
}

func (p *parser) start(el xml.StartElement) error {
	name := el.Name.Local
	depth := len(p.stack)
	value := attr(el, "Value")

	if depth == 1 {
		if name != "Ableton" {
			return ErrNotLiveSet
		}
		p.sawRoot = true
		p.set.Creator = attr(el, "Creator")
		return nil
	}

	if name == "Manual" && p.parent() == "Tempo" && !p.sawTempo {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			p.set.Tempo = v
			p.sawTempo = true
		}
	}

	if p.track == nil {
		if trackKinds[name] {
			p.track = &Track{Kind: name}
			p.trackDepth = depth
			p.userName, p.effective = "", ""
		}
		return nil
	}

	switch {
	case depth == p.trackDepth+2 && p.parent() == "Name":
		switch name {
		case "UserName":
			p.userName = value
		case "EffectiveName":
			p.effective = value
		}
	case depth == p.trackDepth+1 && name == "Color":
		p.track.Color, _ = strconv.Atoi(value)
	case name == "MidiNoteEvent":
		p.track.NoteCount++
	case p.parent() == "Devices":
		p.track.Devices = append(p.track.Devices, name)
	}

	if info, ok := pluginInfos[name]; ok && p.parent() == "PluginDesc" {
		p.plugin = &Plugin{Format: info[0]}
		p.pluginDepth = depth
		p.pluginInfo = info
		return nil
	}
	if p.plugin != nil && depth == p.pluginDepth+1 {
		switch name {
		case p.pluginInfo[1]:
			p.plugin.Name = value
		case p.pluginInfo[2]:
			p.plugin.Vendor = value
		}
	}
	return nil
}

func (p *parser) end() {
	depth := len(p.stack)

	if p.plugin != nil && depth == p.pluginDepth {
		if p.plugin.Name == "" {
			p.plugin.Name = "Unknown " + p.plugin.Format
		}
		if p.plugin.Vendor == "" {
			p.plugin.Vendor = "Unknown"
		}
		if !p.seen[p.plugin.key()] {
			p.seen[p.plugin.key()] = true
			p.set.Plugins = append(p.set.Plugins, *p.plugin)
		}
		p.plugin = nil
	}

	if p.track != nil && depth == p.trackDepth {
		switch {
		case strings.TrimSpace(p.userName) != "":
			p.track.Name = p.userName
		case p.effective != "":
			p.track.Name = p.effective
		case p.track.Kind == KindMain || p.track.Kind == KindMainV12:
			p.track.Name = "Main"
		default:
			p.track.Name = fmt.Sprintf("Untitled Track %d", len(p.set.Tracks)+1)
		}
		p.set.Tracks = append(p.set.Tracks, *p.track)
		p.track = nil
	}
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// MidiTracks returns the MIDI tracks of the set
func (s *Set) MidiTracks() []Track {
	var out []Track
	for _, t := range s.Tracks {
		if t.Kind == KindMidi {
			out = append(out, t)
		}
	}
	return out
}

// NoteCount returns the number of MIDI notes across all tracks
func (s *Set) NoteCount() int {
	n := 0
	for _, t := range s.Tracks {
		n += t.NoteCount
	}
	return n
}

// Summary renders the set as a short human readable text. It is also the
// text indexed for search.
func (s *Set) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tempo: %s BPM\n", FormatTempo(s.Tempo))

	var names []string
	for _, t := range s.Tracks {
		if t.Kind == KindMain || t.Kind == KindMainV12 {
			continue
		}
		names = append(names, t.Name)
	}
	fmt.Fprintf(&b, "Tracks (%d): %s\n", len(names), strings.Join(names, ", "))
	fmt.Fprintf(&b, "MIDI notes: %d\n", s.NoteCount())

	plugins := make([]string, len(s.Plugins))
	for i, pl := range s.Plugins {
		plugins[i] = pl.String()
	}
	fmt.Fprintf(&b, "Plugins (%d): %s", len(plugins), strings.Join(plugins, ", "))
	return b.String()
}

// FormatTempo renders a tempo without trailing zeros
func FormatTempo(bpm float64) string {
	return strconv.FormatFloat(bpm, 'f', -1, 64)
}
