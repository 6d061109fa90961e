package chapters

import (
	"fmt"
	"strconv"
	"strings"

	"mkvtool/pkg/matroska"
	"mkvtool/pkg/tags"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var cueLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Word", Pattern: `[^\s"]+`},
	{Name: "EOL", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[^\S\r\n]+`},
})

type cueSheet struct {
	Lines []*cueLine `parser:"EOL* ( @@ EOL* )*"`
}

type cueLine struct {
	Pos     lexer.Position
	Keyword string   `parser:"@Word"`
	Args    []string `parser:"@( String | Word )*"`
}

var cueParser = participle.MustBuild[cueSheet](
	participle.Lexer(cueLexer),
	participle.Elide("Whitespace"),
)

// ProbeCue reports whether the first non-empty line starts a cue sheet.
func ProbeCue(lines []string) bool {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		keyword := strings.ToUpper(strings.Fields(line)[0])
		switch keyword {
		case "PERFORMER", "TITLE", "FILE", "CATALOG", "REM":
			return strings.ContainsAny(line, " \t")
		}
		return false
	}
	return false
}

// cueTrack holds the values collected for one TRACK entry.
type cueTrack struct {
	num            int
	starts         []int64
	index00Missing bool
	performer      string
	title          string
	date           string
	genre          string
	isrc           string
	flags          string
	comments       []string
}

type cueState struct {
	opts    Options
	edition *Edition
	tags    *tags.Tags

	catalog   string
	performer string
	title     string
	date      string
	genre     string
	discID    string
	comments  []string
	rems      []string

	track *cueTrack
}

// ParseCue parses a cue sheet. Each audio track becomes a chapter and
// its extra INDEX entries become hidden sub-chapters. The returned
// tags describe the album and every track.
func ParseCue(text string, opts Options) (*Chapters, *tags.Tags, error) {
	c, t, err := parseCue(text, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}
	return c, t, nil
}

func parseCue(text string, opts Options) (*Chapters, *tags.Tags, error) {
	opts = opts.withDefaults()
	sheet, err := cueParser.ParseString("", text)
	if err != nil {
		return nil, nil, err
	}

	s := &cueState{
		opts:    opts,
		edition: &Edition{UID: opts.UIDs.New(matroska.UIDEdition)},
		tags:    &tags.Tags{},
	}
	for _, line := range sheet.Lines {
		if err := s.line(line); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line.Pos.Line, err)
		}
	}
	if s.track != nil {
		if err := s.finishTrack(); err != nil {
			return nil, nil, err
		}
	} else {
		s.albumTag()
	}

	c := &Chapters{Editions: []*Edition{s.edition}}
	c.SelectTimeframe(opts.Min, opts.Max, opts.Offset)
	s.tags.RetainChapterUIDs(c.HasAtom)
	return c, s.tags, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func joinArgs(args []string) string {
	ret := make([]string, len(args))
	for i, a := range args {
		ret[i] = unquote(a)
	}
	return strings.Join(ret, " ")
}

func (s *cueState) line(l *cueLine) error {
	global := s.track == nil
	value := joinArgs(l.Args)

	switch strings.ToUpper(l.Keyword) {
	case "FILE":
	case "PERFORMER":
		if global {
			s.performer = value
		} else {
			s.track.performer = value
		}
	case "TITLE":
		if global {
			s.title = value
		} else {
			s.track.title = value
		}
	case "CATALOG":
		s.catalog = value
	case "ISRC":
		if !global {
			s.track.isrc = value
		}
	case "FLAGS":
		if !global {
			s.track.flags = value
		}
	case "TRACK":
		if len(l.Args) == 0 || !strings.EqualFold(l.Args[len(l.Args)-1], "audio") {
			return nil
		}
		if global {
			s.albumTag()
		} else if err := s.finishTrack(); err != nil {
			return err
		}
		num := 1
		if s.track != nil {
			num = s.track.num + 1
		}
		s.track = &cueTrack{num: num}
	case "INDEX":
		if global {
			return nil
		}
		return s.index(l.Args)
	case "REM":
		s.rem(l.Args)
	}
	return nil
}

func (s *cueState) rem(args []string) {
	if len(args) == 0 {
		return
	}
	global := s.track == nil
	key := strings.ToUpper(strings.TrimSuffix(args[0], ":"))
	value := joinArgs(args[1:])
	switch key {
	case "DATE", "YEAR":
		if global {
			s.date = value
		} else {
			s.track.date = value
		}
	case "GENRE":
		if global {
			s.genre = value
		} else {
			s.track.genre = value
		}
	case "DISCID":
		s.discID = value
	case "COMMENT":
		if global {
			s.comments = append(s.comments, value)
		} else {
			s.track.comments = append(s.track.comments, value)
		}
	default:
		if global {
			s.rems = append(s.rems, joinArgs(args))
		} else {
			s.track.comments = append(s.track.comments, joinArgs(args))
		}
	}
}

// index parses "INDEX nn mm:ss:ff" with 75 frames per second.
func (s *cueState) index(args []string) error {
	var index, minutes, seconds, frames int64
	if len(args) != 2 {
		return fmt.Errorf("invalid INDEX entry")
	}
	if _, err := fmt.Sscanf(args[0]+" "+args[1], "%d %d:%d:%d", &index, &minutes, &seconds, &frames); err != nil {
		return fmt.Errorf("invalid INDEX entry: %w", err)
	}

	t := s.track
	if len(t.starts) == 0 && index == 1 {
		t.index00Missing = true
	}
	expected := int64(len(t.starts))
	if t.index00Missing {
		expected++
	}
	if index > 99 || index != expected {
		return fmt.Errorf("invalid INDEX number: got %d, expected %d", index, expected)
	}
	t.starts = append(t.starts, minutes*60e9+seconds*1e9+frames*1e9/75)
	return nil
}

func (s *cueState) trackStart() int64 {
	t := s.track
	if t.index00Missing || len(t.starts) < 2 {
		return t.starts[0]
	}
	return t.starts[1]
}

func (s *cueState) finishTrack() error {
	t := s.track
	if len(t.starts) == 0 {
		return fmt.Errorf("no INDEX entry for track %d", t.num)
	}

	atom := &Atom{
		UID:           s.opts.UIDs.New(matroska.UIDChapter),
		Start:         s.trackStart(),
		Enabled:       true,
		PhysicalEquiv: PhysicalTrack,
		Displays: []Display{{
			String:   s.chapterName(),
			Language: s.opts.Language,
			Country:  s.opts.Country,
		}},
	}
	first := 0
	if t.index00Missing {
		first = 1
	}
	for i, start := range t.starts {
		atom.Atoms = append(atom.Atoms, &Atom{
			UID:           s.opts.UIDs.New(matroska.UIDChapter),
			Start:         start,
			Hidden:        true,
			Enabled:       true,
			PhysicalEquiv: PhysicalIndex,
			Displays: []Display{{
				String:   fmt.Sprintf("INDEX %02d", i+first),
				Language: s.opts.Language,
			}},
		})
	}
	s.edition.Atoms = append(s.edition.Atoms, atom)
	s.trackTag(atom.UID)
	return nil
}

// chapterName expands %p (performer), %t (title), %n (track number)
// and %N (two digit track number).
func (s *cueState) chapterName() string {
	t := s.track
	performer := firstNonEmpty(t.performer, s.performer)
	title := firstNonEmpty(t.title, s.title)

	var b strings.Builder
	format := s.opts.NameFormat
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			b.WriteByte(format[i])
			continue
		}
		switch format[i+1] {
		case 'p':
			b.WriteString(performer)
		case 't':
			b.WriteString(title)
		case 'n':
			b.WriteString(strconv.Itoa(t.num))
		case 'N':
			fmt.Fprintf(&b, "%02d", t.num)
		default:
			b.WriteByte('%')
			continue
		}
		i++
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func addSimple(tag *tags.Tag, name, value string) {
	if value != "" {
		tag.Simples = append(tag.Simples, tags.NewSimple(name, value))
	}
}

func (s *cueState) trackTag(chapterUID uint64) {
	t := s.track
	tag := &tags.Tag{Targets: tags.Targets{
		TypeValue:   tags.TargetTrack,
		Type:        "TRACK",
		ChapterUIDs: []uint64{chapterUID},
	}}
	addSimple(tag, "TITLE", t.title)
	addSimple(tag, "PART_NUMBER", strconv.Itoa(t.num))
	addSimple(tag, "ARTIST", firstNonEmpty(t.performer, s.performer))
	addSimple(tag, "DATE_RELEASED", firstNonEmpty(t.date, s.date))
	addSimple(tag, "GENRE", firstNonEmpty(t.genre, s.genre))
	addSimple(tag, "ISRC", t.isrc)
	addSimple(tag, "CDAUDIO_TRACK_FLAGS", t.flags)
	for _, c := range s.comments {
		addSimple(tag, "COMMENT", c)
	}
	for _, c := range t.comments {
		addSimple(tag, "COMMENT", c)
	}
	s.tags.Add(tag)
}

func (s *cueState) albumTag() {
	tag := &tags.Tag{Targets: tags.Targets{
		TypeValue: tags.TargetAlbum,
		Type:      "ALBUM",
	}}
	addSimple(tag, "ARTIST", s.performer)
	addSimple(tag, "TITLE", s.title)
	addSimple(tag, "DATE_RELEASED", s.date)
	addSimple(tag, "DISCID", s.discID)
	addSimple(tag, "CATALOG_NUMBER", s.catalog)
	for _, r := range s.rems {
		addSimple(tag, "COMMENT", r)
	}
	if len(tag.Simples) != 0 {
		s.tags.Add(tag)
	}
}
