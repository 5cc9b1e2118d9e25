package synthcorona

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseError reports a syntax problem found while parsing an SC file, with
// the source line it was tripped on.
type ParseError struct {
	Msg  string
	Line int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s Line: %d", e.Msg, e.Line)
}

func parseErr(line int, format string, args ...interface{}) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Line: line}
}

// headers are the block header tokens recognized at the start of a line.
var headers = map[string]bool{
	"CFG": true, "INS": true, "MDL": true, "SEQ": true,
	"PAT": true, "BLK": true, "SNG": true, "IMP": true,
}

// reserved holds the characters that cannot appear in a name, because the
// parser uses them as module-expression syntax.
const reserved = "+-*/rixlvcs{}[]()<>.,|"

// moduleKind tells popModule/parseModule what namespace a bare name should
// resolve against.
type moduleKind int

const (
	kindInst moduleKind = iota
	kindTone
	kindSeqn
	kindMdle
)

// namedSeq is what self.seqs holds: something playable as a song step that
// can also be cloned for reuse across song lines.
type namedSeq interface {
	SongStep
	Clone() Module
}

// parserState is which file section is currently being read.
type parserState int

const (
	stateCFG parserState = iota
	stateINS
	stateMDL
	stateSEQ
	stateBLK
	stateSNG
)

// Parser loads an SC source file into instruments, modules, sequences and a
// top-level Song, tracking the configuration (tempo, sample rate, bit
// depth, stereo/mono, normalization) that governs how they're built.
type Parser struct {
	path string

	insts   map[string]*Inst
	modules map[string]Module
	seqs    map[string]namedSeq
	song    *Song

	Tempo     int
	Stereo    bool
	Beat      int
	Rate      int
	Depth     int
	Normalize bool
	Name      string

	framesPerStep float64
	frameSlice    float64
	relTime       float64

	curParseModule string
}

// NewParser returns a Parser with SC's stock defaults (120 BPM, 4
// beats/step, 44100 Hz, 16-bit, stereo, normalization off).
func NewParser() *Parser {
	p := &Parser{
		insts:   make(map[string]*Inst),
		modules: make(map[string]Module),
		seqs:    make(map[string]namedSeq),
		Tempo:   120,
		Stereo:  true,
		Beat:    4,
		Rate:    44100,
		Depth:   16,
	}
	p.recomputeTiming()
	return p
}

func (p *Parser) recomputeTiming() {
	p.framesPerStep = 60 * float64(p.Rate) / float64(p.Tempo*p.Beat)
	p.frameSlice = 1 / p.framesPerStep
	p.relTime = insRelTimeMs * float64(p.Rate) / 1000
}

// timing returns the Timing snapshot current SeqLines/Insts should be
// built against.
func (p *Parser) timing() Timing {
	return Timing{
		SampleRate: float64(p.Rate), FramesPerStep: p.framesPerStep,
		FrameSlice: p.frameSlice, RelTime: p.relTime,
	}
}

// Song returns the parsed top-level Song, or nil if Parse has not run.
func (p *Parser) Song() *Song { return p.song }

// Parse loads and parses the SC file at filename into this Parser.
func (p *Parser) Parse(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "." && !strings.ContainsAny(filename, `/\`) {
		p.path = ""
	} else {
		p.path = dir + string(filepath.Separator)
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")

	state := stateCFG
	var seqName string
	var seqPan Module
	var seqLines []*SeqLine
	var songSteps []SongStep

	flushSeq := func() {
		if seqName != "" {
			p.seqs[seqName] = NewSequence(seqLines, seqPan)
		}
	}

	for i, raw := range lines {
		line := raw
		if cmt := strings.Index(line, "//"); cmt >= 0 {
			line = line[:cmt]
		}

		if strings.TrimSpace(line) != "" {
			switch {
			case startsWith(line, "IMP", "imp"):
				rest := strings.TrimSpace(line[4:])
				if !strings.ContainsAny(rest, `\/`) {
					rest = p.path + rest
				}
				sub := NewParser()
				if err := sub.Parse(rest); err != nil {
					return fmt.Errorf("importing %s: %w", rest, err)
				}
				for name, m := range sub.modules {
					p.modules[name] = m
				}
				for name, in := range sub.insts {
					p.insts[name] = in
				}
				for name, s := range sub.seqs {
					p.seqs[name] = s
				}
			case startsWith(line, "CFG", "cfg"):
				state = stateCFG
			case startsWith(line, "INS", "ins"):
				state = stateINS
			case startsWith(line, "MDL", "mdl"):
				state = stateMDL
			case startsWith(line, "SEQ", "seq"):
				flushSeq()
				seqPan = NewVal(0)
				seqLines = nil
				state = stateSEQ
				name := strings.TrimSpace(line[3:])
				pan, nm, err := p.parseHeaderMeta(name, i+1)
				if err != nil {
					return err
				}
				if pan != nil {
					seqPan = pan
				}
				seqName = nm
				p.curParseModule = "SEQ: " + seqName
			case startsWith(line, "PAT", "pat", "BLK", "blk"):
				state = stateBLK
			case startsWith(line, "SNG", "sng"):
				state = stateSNG
				p.curParseModule = "SONG"
				rest := strings.TrimLeft(line[3:], " \t")
				rest = strings.TrimPrefix(rest, ":")
				rest = strings.TrimLeft(rest, " \t")
				if strings.TrimSpace(rest) != "" {
					steps, err := p.parseSongLine(rest, i+1)
					if err != nil {
						return err
					}
					songSteps = append(songSteps, steps...)
				}
			default:
				switch state {
				case stateCFG:
					if err := p.parseCfgLine(line); err != nil {
						return err
					}
				case stateSNG:
					if strings.TrimSpace(line) != "" {
						steps, err := p.parseSongLine(line, i+1)
						if err != nil {
							return err
						}
						songSteps = append(songSteps, steps...)
					}
				case stateINS, stateMDL:
					if err := p.parseInstOrModuleLine(line, state, i+1); err != nil {
						return err
					}
				case stateBLK:
					if err := p.parseBlockLine(line, i+1); err != nil {
						return err
					}
				case stateSEQ:
					if strings.TrimSpace(line) != "" {
						ln, err := p.parseSeqLine(line, i+1)
						if err != nil {
							return err
						}
						seqLines = append(seqLines, ln)
					}
					if i+1 >= len(lines) || headers[strings.ToUpper(safeSub(lines[i+1], 0, 3))] {
						flushSeq()
					}
				}
			}
		} else if state == stateSEQ {
			if i+1 >= len(lines) || headers[strings.ToUpper(safeSub(lines[i+1], 0, 3))] {
				flushSeq()
			}
		}
	}

	p.song = NewSong(songSteps)
	return nil
}

func startsWith(s string, prefixes ...string) bool {
	for _, pfx := range prefixes {
		if strings.HasPrefix(s, pfx) {
			return true
		}
	}
	return false
}

func safeSub(s string, a, b int) string {
	if a < 0 {
		a = 0
	}
	if b > len(s) {
		b = len(s)
	}
	if a > len(s) {
		a = len(s)
	}
	if a > b {
		return ""
	}
	return s[a:b]
}

// parseHeaderMeta parses a "name<meta,...>" header body shared by SEQ
// headers, returning a pan module if one was set and the bare name.
func (p *Parser) parseHeaderMeta(body string, line int) (Module, string, error) {
	if !strings.Contains(body, "<") {
		return nil, strings.TrimSpace(body), nil
	}
	parts := strings.SplitN(body, "<", 2)
	name := strings.TrimSpace(parts[0])
	if !strings.Contains(parts[1], ">") {
		return nil, "", parseErr(line, "Missing '>' in meta tag.")
	}
	metaBody := strings.SplitN(parts[1], ">", 2)[0]
	var pan Module
	for _, mt := range strings.Split(metaBody, ",") {
		mt = strings.TrimSpace(mt)
		if startsWith(mt, "pan", "PAN") {
			val := strings.TrimLeft(metaValue(mt), " \t")
			m, err := p.parsePanMeta(val)
			if err != nil {
				return nil, "", err
			}
			pan = m
		}
	}
	return pan, name, nil
}

// metaValue returns the text after a meta key's "=", mirroring Python's
// str.split("=")[1].
func metaValue(mt string) string {
	parts := strings.SplitN(mt, "=", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// parsePanMeta interprets a pan meta value: a reference to a named
// module, or a literal (optionally negative) number.
func (p *Parser) parsePanMeta(val string) (Module, error) {
	if m, ok := p.modules[val]; ok {
		return m.Clone(), nil
	}
	if val == "" {
		return nil, nil
	}
	c := val[0]
	if !(isDigit(c) || c == '.' || c == '-') {
		return nil, nil
	}
	invert := false
	if c == '-' {
		invert = true
		val = val[1:]
	}
	num := takeNumeric(val)
	f, _ := strconv.ParseFloat(num, 64)
	var m Module = NewVal(f)
	if invert {
		m = NewInvert(m)
	}
	return m, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func takeNumeric(s string) string {
	i := 0
	for i < len(s) && (isDigit(s[i]) || s[i] == '.') {
		i++
	}
	return s[:i]
}

func (p *Parser) parseCfgLine(line string) error {
	switch {
	case startsWith(line, "TEMPO", "TMP", "tempo", "tmp"):
		v, err := cfgInt(line)
		if err != nil {
			return err
		}
		p.Tempo = v
	case startsWith(line, "BEAT", "beat"):
		v, err := cfgInt(line)
		if err != nil {
			return err
		}
		p.Beat = v
	case startsWith(line, "RATE", "rate"):
		v, err := cfgInt(line)
		if err != nil {
			return err
		}
		p.Rate = v
	case startsWith(line, "DEPTH", "depth"):
		v, err := cfgInt(line)
		if err != nil {
			return err
		}
		p.Depth = v
	case startsWith(line, "NAME", "TITLE", "name", "title"):
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			p.Name = strings.TrimSpace(parts[1])
		}
	case startsWith(line, "STEREO", "stereo"):
		p.Stereo = true
	case startsWith(line, "MONO", "mono"):
		p.Stereo = false
	case startsWith(line, "NORMALIZE", "normalize", "NORM", "norm"):
		parts := strings.SplitN(line, ":", 2)
		val := ""
		if len(parts) == 2 {
			val = strings.TrimSpace(parts[1])
		}
		p.Normalize = !startsWith(val, "F", "f", "0")
	}
	p.recomputeTiming()
	return nil
}

func cfgInt(line string) (int, error) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed config line %q", line)
	}
	return strconv.Atoi(strings.TrimSpace(parts[1]))
}

// instMeta is the set of tagged properties an instrument/block header can
// carry: period, loop, sustain, pan, and base (copy-from another
// instrument).
type instMeta struct {
	period float64
	loop   bool
	sus    bool
	pan    Module
}

func (p *Parser) parseInstMeta(meta []string, line int) (instMeta, error) {
	m := instMeta{period: -1, loop: true}
	for _, mt := range meta {
		mt = strings.TrimSpace(mt)
		switch {
		case startsWith(mt, "period", "PERIOD", "prd", "PRD"):
			v, err := strconv.Atoi(strings.TrimLeft(metaValue(mt), " \t"))
			if err != nil {
				return m, parseErr(line, "invalid period: %v", err)
			}
			m.period = float64(v)
		case startsWith(mt, "loop", "LOOP", "l", "L"):
			m.loop = startsWith(strings.TrimLeft(metaValue(mt), " \t"), "T", "t", "1")
		case startsWith(mt, "sus", "SUS", "SUSTAIN", "sustain", "s", "S"):
			m.sus = startsWith(strings.TrimLeft(metaValue(mt), " \t"), "T", "t", "1")
		case startsWith(mt, "pan", "PAN"):
			pm, err := p.parsePanMeta(strings.TrimLeft(metaValue(mt), " \t"))
			if err != nil {
				return m, err
			}
			if pm != nil {
				m.pan = pm
			}
		case startsWith(mt, "BASE", "base"):
			base := strings.TrimLeft(metaValue(mt), " \t")
			ins, ok := p.insts[base]
			if ok {
				m.period = ins.period
				m.loop = ins.loop
				m.sus = ins.sus
				m.pan = ins.pan.Clone()
			}
		}
	}
	if m.pan == nil {
		m.pan = NewVal(0)
	}
	return m, nil
}

func (p *Parser) parseInstOrModuleLine(line string, state parserState, lineNo int) error {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return parseErr(lineNo, "expected 'name: description'")
	}
	name, desc := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	meta := instMeta{period: -1, loop: true, pan: NewVal(0)}
	if strings.Contains(name, "<") {
		np := strings.SplitN(name, "<", 2)
		if !strings.Contains(np[1], ">") {
			return parseErr(lineNo, "Missing '>' in meta tag.")
		}
		name = strings.TrimSpace(np[0])
		metaBody := strings.SplitN(np[1], ">", 2)[0]
		var err error
		meta, err = p.parseInstMeta(strings.Split(metaBody, ","), lineNo)
		if err != nil {
			return err
		}
	}

	if state == stateINS {
		p.curParseModule = "INS: " + name
		mdl, _, err := p.parseModule(desc, kindInst, lineNo)
		if err != nil {
			return err
		}
		p.insts[name] = NewInst(mdl, meta.period, meta.loop, meta.sus, meta.pan, float64(p.Rate), p.relTime)
	} else {
		p.curParseModule = "MDL: " + name
		mdl, _, err := p.parseModule(desc, kindMdle, lineNo)
		if err != nil {
			return err
		}
		p.modules[name] = mdl
	}
	return nil
}

func (p *Parser) parseBlockLine(line string, lineNo int) error {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return parseErr(lineNo, "expected 'name: description'")
	}
	name, desc := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	var panMdl Module = NewVal(0)
	if strings.Contains(name, "<") {
		np := strings.SplitN(name, "<", 2)
		if !strings.Contains(np[1], ">") {
			return parseErr(lineNo, "Missing '>' in meta tag.")
		}
		name = strings.TrimSpace(np[0])
		metaBody := strings.SplitN(np[1], ">", 2)[0]
		for _, mt := range strings.Split(metaBody, ",") {
			mt = strings.TrimSpace(mt)
			if startsWith(mt, "pan", "PAN") {
				m, err := p.parsePanMeta(strings.TrimLeft(metaValue(mt), " \t"))
				if err != nil {
					return err
				}
				if m != nil {
					panMdl = m
				}
			}
		}
	}

	p.curParseModule = "BLOCK: " + name
	mdl, _, e := p.parseModule(desc, kindSeqn, lineNo)
	if e != nil {
		return e
	}
	p.seqs[name] = NewSeqBlock(mdl, panMdl)
	return nil
}

func (p *Parser) parseSeqLine(line string, lineNo int) (*SeqLine, error) {
	var panMdl Module = NewVal(0)
	name := strings.SplitN(line, ":", 2)[0]
	name = strings.TrimSpace(name)

	if strings.HasPrefix(name, "<") {
		rest := name[1:]
		np := strings.SplitN(rest, ">", 2)
		if len(np) < 2 {
			return nil, parseErr(lineNo, "Missing '>' in meta tag.")
		}
		metaBody, nm := np[0], np[1]
		name = strings.TrimSpace(nm)
		for _, mt := range strings.Split(metaBody, ",") {
			mt = strings.TrimSpace(mt)
			if startsWith(mt, "pan", "PAN") {
				m, err := p.parsePanMeta(strings.TrimLeft(metaValue(mt), " \t"))
				if err != nil {
					return nil, err
				}
				if m != nil {
					panMdl = m
				}
			}
		}
	}

	p.curParseModule = "SEQ: " + name

	startInx := strings.Index(line, "|")
	endInx := strings.LastIndex(line, "|")
	pitch, _, err := p.parseModule(name, kindTone, lineNo)
	if err != nil {
		return nil, err
	}

	cellLine := line
	if startInx >= 0 && endInx > startInx {
		cellLine = line[startInx:endInx]
	}
	cellLine = strings.ReplaceAll(cellLine, "|", "")

	var pat []Cell
	for i := 0; i < len(cellLine); i++ {
		switch {
		case cellLine[i] == ' ':
			pat = append(pat, Cell{Kind: CellSilence})
		case cellLine[i] == '-':
			pat = append(pat, Cell{Kind: CellTie})
		default:
			key := string(cellLine[i])
			inst, ok := p.insts[key]
			if !ok {
				return nil, parseErr(lineNo, "Unrecognized Instrument in sequence line: %s", key)
			}
			pat = append(pat, Cell{Kind: CellInst, Inst: inst.Clone().(*Inst)})
		}
	}

	return NewSeqLine(p.timing(), pitch, pat, panMdl), nil
}

// splitTopLevel splits stng on commas that are not nested inside
// [], {} or () groups.
func splitTopLevel(stng string) []string {
	var bits []string
	brace, bracket, paren := 0, 0, 0
	start := 0
	for i := 0; i < len(stng); i++ {
		switch stng[i] {
		case '[':
			bracket++
		case ']':
			bracket--
		case '{':
			brace++
		case '}':
			brace--
		case '(':
			paren++
		case ')':
			paren--
		case ',':
			if brace == 0 && bracket == 0 && paren == 0 {
				bits = append(bits, stng[start:i])
				start = i + 1
			}
		}
	}
	if start < len(stng) {
		bits = append(bits, stng[start:])
	}
	return bits
}

func (p *Parser) parseSongLine(stng string, line int) ([]SongStep, error) {
	var steps []SongStep
	for _, bit := range splitTopLevel(stng) {
		mdl, _, err := p.parseModule(strings.TrimSpace(bit), kindSeqn, line)
		if err != nil {
			return nil, err
		}
		step, ok := mdl.(SongStep)
		if !ok {
			return nil, parseErr(line, "module is not a valid song step")
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (p *Parser) parsePattern(stng string, kind moduleKind, line int) (Module, error) {
	bits := splitTopLevel(stng)
	ary := make([]Module, len(bits))
	for i, b := range bits {
		m, _, err := p.parseModule(strings.TrimSpace(b), kind, line)
		if err != nil {
			return nil, err
		}
		ary[i] = m
	}
	return NewPattern(ary), nil
}

func (p *Parser) parseSet(stng string, kind moduleKind, line int) (Module, error) {
	bits := splitTopLevel(stng)
	ary := make([]Module, len(bits))
	for i, b := range bits {
		m, _, err := p.parseModule(strings.TrimSpace(b), kind, line)
		if err != nil {
			return nil, err
		}
		ary[i] = m
	}
	return NewSet(ary), nil
}

func (p *Parser) parseSeries(stng string, kind moduleKind, line int) (Module, error) {
	bits := splitTopLevel(stng)
	ary := make([]Module, len(bits))
	for i, b := range bits {
		m, _, err := p.parseModule(strings.TrimSpace(b), kind, line)
		if err != nil {
			return nil, err
		}
		ary[i] = m
	}
	return NewSeries(ary), nil
}

func extractBalanced(stng string, open, close byte, line int) (string, string, error) {
	brackets := 0
	for i := 0; i < len(stng); i++ {
		if stng[i] == open {
			brackets++
		} else if stng[i] == close {
			brackets--
		}
		if brackets == 0 {
			return stng[1 : i], stng[i+1:], nil
		}
	}
	if brackets > 0 {
		return "", "", parseErr(line, "Expected '%c'.", close)
	}
	return "", "", parseErr(line, "Expected '%c'.", open)
}

// parseMetaTag reads a leading "<...>" tag off stng, if present, returning
// the comma-separated fields and the remainder of stng.
func parseMetaTag(stng string) ([]string, string) {
	stng = strings.TrimLeft(stng, " \t")
	if stng == "" {
		return nil, stng
	}
	if stng[0] != '<' {
		return nil, stng
	}
	end := strings.Index(stng, ">")
	if end < 0 {
		return nil, stng
	}
	meta := strings.Split(strings.TrimSpace(stng[1:end]), ",")
	return meta, stng[end+1:]
}

// parseModule parses a full module expression: a leading operand via
// popModule, followed by zero or more "<op> <operand>" pairs, combined
// strictly left to right (SC has no operator precedence).
func (p *Parser) parseModule(stng string, kind moduleKind, line int) (Module, string, error) {
	modA, stng, err := p.popModule(stng, kind, line)
	if err != nil {
		return nil, "", err
	}

	for strings.TrimSpace(stng) != "" {
		cross := false
		trimmed := strings.TrimLeft(stng, " \t")
		op := trimmed[0]
		stng = strings.TrimLeft(trimmed[1:], " \t")

		if op == 'x' {
			op = stng[0]
			stng = strings.TrimLeft(stng[1:], " \t")
			cross = true
		}

		meta, rest := parseMetaTag(stng)
		stng = rest

		mdl, rest2, err := p.popModule(stng, kind, line)
		if err != nil {
			return nil, "", err
		}
		stng = rest2

		aLead := metaLead(meta)
		switch op {
		case '+':
			modA = NewAdd(modA, mdl, aLead)
		case '-':
			modA = NewSubtract(modA, mdl, aLead)
		case 'r':
			modA = NewRepeat(modA, mdl)
		case '*':
			modA = NewMultiply(modA, mdl, aLead)
		case '/':
			modA = NewDivide(modA, mdl, aLead)
		case 'i':
			width := 1.0
			for _, mt := range meta {
				if startsWith(mt, "WID", "WIDTH", "w", "W") {
					if w, e := strconv.ParseFloat(metaValue(mt), 64); e == nil && w > 0 {
						width = w
					}
				}
			}
			modA = NewLinInterp(modA, mdl, width)
		case 'l':
			modA = NewLevel(modA, mdl, aLead)
		case 'v':
			rate := 1.0
			loop := false
			for _, mt := range meta {
				mt = strings.TrimSpace(mt)
				if startsWith(mt, "R", "r", "RATE", "rate") {
					if r, e := strconv.ParseFloat(strings.TrimSpace(metaValue(mt)), 64); e == nil && r > 0 {
						rate = r
					}
				} else if startsWith(mt, "L", "l", "LOOP", "loop") {
					loop = startsWith(strings.TrimSpace(metaValue(mt)), "T", "t", "1")
				}
			}
			modA = NewEnvelope(modA, mdl, p.frameSlice*rate, loop)
		case 's':
			modA = NewSpeed(modA, mdl, aLead)
		case 'n':
			modA = NewLength(modA, mdl)
		default:
			return nil, "", parseErr(line, "Unknown operator %q", string(op))
		}

		if cross {
			if _, ok := modA.(binaryOperand); !ok {
				return nil, "", parseErr(line, "Invalid Operator for Cross module")
			}
			modA = NewCross(modA)
		}
	}
	return modA, stng, nil
}

func metaLead(meta []string) bool {
	for _, mt := range meta {
		mt = strings.TrimSpace(mt)
		if startsWith(mt, "LEAD", "LD", "lead", "ld") {
			v := metaValue(mt)
			return !startsWith(v, "B", "b")
		}
	}
	return true
}

// popModule parses a single operand: an optional leading unary operator
// ("-" invert, "c" wrap in Const), then a number, tone name, grouping
// ([...] Pattern, {...} Set, (...) Series), or a bare name resolved
// against the current namespace (instrument, module, tone, or sequence).
func (p *Parser) popModule(stng string, kind moduleKind, line int) (Module, string, error) {
	stng = strings.TrimLeft(stng, " \t")
	if stng == "" {
		return nil, "", parseErr(line, "Empty module at %s.", p.curParseModule)
	}

	// Unary prefixes recurse so they stack freely (e.g. "-c5" is Invert of
	// a Const-wrapped 5); everything below this handles a bare leaf/group.
	if stng[0] == '-' {
		mdl, rest, err := p.popModule(stng[1:], kind, line)
		if err != nil {
			return nil, "", err
		}
		return NewInvert(mdl), rest, nil
	}
	if stng[0] == 'c' {
		rest := strings.TrimLeft(stng[1:], " \t")
		constRate := 1.0
		constLoop := true
		if len(rest) > 0 && rest[0] == '<' {
			end := strings.Index(rest, ">")
			if end < 0 {
				return nil, "", parseErr(line, "Missing '>' in meta tag.")
			}
			meta := strings.Split(strings.TrimSpace(rest[1:end]), ",")
			rest = rest[end+1:]
			for _, mt := range meta {
				mt = strings.TrimSpace(mt)
				if startsWith(mt, "R", "r", "RATE", "rate") {
					if r, e := strconv.ParseFloat(metaValue(mt), 64); e == nil && r >= 1 {
						constRate = r
					}
				} else if startsWith(mt, "L", "l", "LOOP", "loop") {
					constLoop = startsWith(strings.TrimSpace(metaValue(mt)), "T", "t", "1")
				}
			}
		}
		mdl, rest2, err := p.popModule(rest, kind, line)
		if err != nil {
			return nil, "", err
		}
		return NewConst(mdl, p.frameSlice, constRate, constLoop), rest2, nil
	}

	var modA Module
	switch {
	case (kind == kindTone || kind == kindMdle) && len(stng) >= 2 && toneLookup(p, stng[:2]) != nil:
		modA = toneLookup(p, stng[:2])
		stng = stng[2:]
	case (kind == kindTone || kind == kindMdle) && len(stng) >= 3 && toneLookup(p, stng[:3]) != nil:
		modA = toneLookup(p, stng[:3])
		stng = stng[3:]
	case len(stng) > 0 && (isDigit(stng[0]) || stng[0] == '.'):
		num := takeNumeric(stng)
		stng = stng[len(num):]
		f, _ := strconv.ParseFloat(num, 64)
		modA = NewVal(f)
	case len(stng) > 0 && stng[0] == '[':
		inner, rest, err := extractBalanced(stng, '[', ']', line)
		if err != nil {
			return nil, "", err
		}
		stng = rest
		modA, err = p.parsePattern(inner, kind, line)
		if err != nil {
			return nil, "", err
		}
	case len(stng) > 0 && stng[0] == '{':
		inner, rest, err := extractBalanced(stng, '{', '}', line)
		if err != nil {
			return nil, "", err
		}
		stng = rest
		modA, err = p.parseSet(inner, kind, line)
		if err != nil {
			return nil, "", err
		}
	case len(stng) > 0 && stng[0] == '(':
		inner, rest, err := extractBalanced(stng, '(', ')', line)
		if err != nil {
			return nil, "", err
		}
		stng = rest
		modA, err = p.parseSeries(inner, kind, line)
		if err != nil {
			return nil, "", err
		}
	default:
		i := 0
		for i < len(stng) && !strings.ContainsRune(reserved, rune(stng[i])) {
			i++
		}
		name := stng[:i]
		stng = stng[i:]
		meta, rest := parseMetaTag(stng)
		stng = rest

		switch kind {
		case kindInst, kindMdle:
			if ins, ok := p.insts[name]; ok {
				cloned := ins.Clone().(*Inst)
				for _, mt := range meta {
					mt = strings.TrimSpace(mt)
					switch {
					case startsWith(mt, "MODULE", "MDL", "module", "mdl"):
						modA = cloned.Unwrap()
					case startsWith(mt, "period", "PERIOD", "prd", "PRD"):
						v, e := strconv.Atoi(strings.TrimLeft(metaValue(mt), " \t"))
						if e == nil {
							cloned.period = float64(v)
						}
					case startsWith(mt, "loop", "LOOP", "l", "L"):
						cloned.loop = startsWith(strings.TrimLeft(metaValue(mt), " \t"), "t", "T", "1")
					case startsWith(mt, "sus", "SUS", "SUSTAIN", "sustain", "s", "S"):
						cloned.sus = startsWith(strings.TrimLeft(metaValue(mt), " \t"), "t", "T", "1")
					}
				}
				if modA == nil {
					modA = cloned
				}
			} else if mdl, ok := p.modules[name]; ok {
				modA = mdl.Clone()
			} else {
				return nil, "", parseErr(line, "Invalid inst: %s", name)
			}
		case kindTone:
			if cents, ok := p.tones()[name]; ok {
				modA = NewVal(cents)
			} else if mdl, ok := p.modules[name]; ok {
				modA = mdl.Clone()
			} else {
				return nil, "", parseErr(line, "Invalid Pitch: %s", name)
			}
		case kindSeqn:
			if seq, ok := p.seqs[name]; ok {
				modA = seq.Clone()
			} else if mdl, ok := p.modules[name]; ok {
				modA = NewSeqBlock(mdl.Clone(), NewVal(0))
			} else {
				return nil, "", parseErr(line, "Invalid Sequence: %s", name)
			}
		}
	}

	return modA, stng, nil
}

func (p *Parser) tones() map[string]float64 { return tones }

func toneLookup(p *Parser, name string) Module {
	if cents, ok := tones[name]; ok {
		return NewVal(cents)
	}
	return nil
}
