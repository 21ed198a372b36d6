// Package encoding decodes raw file bytes of unknown encoding into UTF-8
// text.
//
// Detection runs as a fallback chain: a statistical guess first, then an
// ordered list of candidates each tried with a strict decode, and finally a
// lenient decode with the last candidate that substitutes U+FFFD for bad
// bytes. The chain always produces text.
package encoding

import (
	"bytes"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"convertzh/internal/errors"
	"convertzh/internal/log"
	"convertzh/pkg/types"
)

// UTF8 is the canonical encoding every decoded text is normalized to.
const UTF8 = "utf-8"

// DefaultMinConfidence is the lowest detector confidence (0-100) accepted
// without going through the fallback list.
const DefaultMinConfidence = 50

// DefaultCandidates is the fallback order for Simplified Chinese sources.
// UTF-8 comes first: Chinese UTF-8 text is nearly always valid GBK as well,
// so a GB-first order would garble UTF-8 files. The cost is that a very
// short GBK text can happen to be valid UTF-8 (GB18030 "小说" is the bytes
// of "С˵") and is then read as UTF-8. Such a file is canonical UTF-8, so it
// is left untouched rather than corrupted. GB18030, a superset of GBK,
// closes the list and is used for the lenient decode.
var DefaultCandidates = []string{UTF8, "gbk", "big5", "gb18030"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// detectorCharsets maps the charsets the statistical detector reports to
// the names used here. Suggestions outside this family are ignored.
var detectorCharsets = map[string]string{
	"UTF-8":    UTF8,
	"UTF-16LE": "utf-16le",
	"UTF-16BE": "utf-16be",
	"GB-18030": "gb18030",
	"Big5":     "big5",
}

// EUC-CN (gb2312) is a subset of GBK and is decoded as such.
var registry = map[string]xencoding.Encoding{
	"gb18030":  simplifiedchinese.GB18030,
	"gbk":      simplifiedchinese.GBK,
	"gb2312":   simplifiedchinese.GBK,
	"big5":     traditionalchinese.Big5,
	"utf-16le": unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16be": unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
}

// charsetDetector is the statistical pass; *chardet.Detector implements it.
type charsetDetector interface {
	DetectBest(b []byte) (*chardet.Result, error)
}

// Result is the outcome of decoding one byte slice.
type Result struct {
	Text     string
	Encoding string
	// Canonical is true when Text encoded as UTF-8 equals the input bytes,
	// i.e. writing the text back would not change the file.
	Canonical bool
	Guesses   []types.EncodingGuess
}

// Lenient reports whether the final substituting decode produced Text.
func (r Result) Lenient() bool {
	if len(r.Guesses) == 0 {
		return false
	}
	return r.Guesses[len(r.Guesses)-1].Source == types.SourceLenient
}

// Detector decodes bytes of unknown encoding. It is safe to reuse across
// files; it holds no per-file state.
type Detector struct {
	candidates    []string
	minConfidence int
	stat          charsetDetector
	logger        *log.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithCandidates replaces the ordered fallback list.
func WithCandidates(names ...string) Option {
	return func(d *Detector) { d.candidates = names }
}

// WithMinConfidence sets the detector confidence threshold.
func WithMinConfidence(c int) Option {
	return func(d *Detector) { d.minConfidence = c }
}

// WithLogger sets the logger used for debug traces of each attempt.
func WithLogger(l *log.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithoutStatistics disables the statistical pass.
func WithoutStatistics() Option {
	return func(d *Detector) { d.stat = nil }
}

// New creates a Detector. Unknown candidate names are a configuration error.
func New(opts ...Option) (*Detector, error) {
	d := &Detector{
		candidates:    DefaultCandidates,
		minConfidence: DefaultMinConfidence,
		stat:          chardet.NewTextDetector(),
		logger:        log.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if len(d.candidates) == 0 {
		return nil, errors.NewConfigError("empty encoding list", "encodings", errors.InvalidConfig, nil)
	}
	normalized := make([]string, 0, len(d.candidates))
	for _, name := range d.candidates {
		n := Normalize(name)
		if !Supported(n) {
			return nil, errors.NewConfigError("unsupported encoding", name, errors.InvalidConfig, nil)
		}
		normalized = append(normalized, n)
	}
	d.candidates = normalized
	if d.minConfidence < 0 || d.minConfidence > 100 {
		return nil, errors.NewConfigError("confidence must be within 0-100", "min_confidence", errors.InvalidConfig, nil)
	}
	return d, nil
}

// Candidates returns the normalized fallback list.
func (d *Detector) Candidates() []string {
	return append([]string(nil), d.candidates...)
}

// Decode returns the text and the name of the encoding used.
func (d *Detector) Decode(data []byte) (string, string) {
	r := d.Detect(data)
	return r.Text, r.Encoding
}

// DecodeFile reads path and decodes it.
func (d *Detector) DecodeFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, errors.NewFileError("file not found", path, errors.FileNotFound, err)
		}
		return Result{}, errors.NewFileError("cannot read file", path, errors.FileOperationFailed, err)
	}
	return d.Detect(data), nil
}

// Detect runs the full fallback chain over data.
func (d *Detector) Detect(data []byte) Result {
	var guesses []types.EncodingGuess
	finish := func(text, enc string) Result {
		return Result{
			Text:      text,
			Encoding:  enc,
			Canonical: text == string(data),
			Guesses:   guesses,
		}
	}

	if len(data) == 0 {
		guesses = append(guesses, types.EncodingGuess{Encoding: UTF8, Source: types.SourceFallback, OK: true})
		return finish("", UTF8)
	}

	if name, confidence, ok := d.suggest(data); ok {
		text, err := DecodeStrict(data, name)
		guess := types.EncodingGuess{Encoding: name, Confidence: confidence, Source: types.SourceDetector, OK: err == nil}
		guesses = append(guesses, guess)
		if err == nil {
			d.logger.With(log.F("encoding", name), log.F("confidence", confidence)).Debug("detector guess accepted")
			return finish(text, name)
		}
		d.logger.With(log.F("encoding", name)).WithError(err).Debug("detector guess rejected")
	}

	for _, name := range d.candidates {
		text, err := DecodeStrict(data, name)
		guesses = append(guesses, types.EncodingGuess{Encoding: name, Source: types.SourceFallback, OK: err == nil})
		if err == nil {
			d.logger.With(log.F("encoding", name)).Debug("fallback encoding accepted")
			return finish(text, name)
		}
	}

	last := d.candidates[len(d.candidates)-1]
	guesses = append(guesses, types.EncodingGuess{Encoding: last, Source: types.SourceLenient, OK: true})
	d.logger.With(log.F("encoding", last)).Warn("no encoding decoded cleanly, substituting invalid bytes")
	return finish(DecodeLenient(data, last), last)
}

// suggest asks the statistical detector for a charset. It only returns a
// suggestion that is in the supported family and confident enough.
func (d *Detector) suggest(data []byte) (string, int, bool) {
	if d.stat == nil {
		return "", 0, false
	}
	best, err := d.stat.DetectBest(data)
	if err != nil || best == nil {
		return "", 0, false
	}
	name, known := detectorCharsets[best.Charset]
	if !known {
		d.logger.With(log.F("charset", best.Charset), log.F("confidence", best.Confidence)).Debug("detector suggested an unsupported charset")
		return "", 0, false
	}
	if best.Confidence < d.minConfidence {
		d.logger.With(log.F("charset", name), log.F("confidence", best.Confidence)).Debug("detector confidence below threshold")
		return "", 0, false
	}
	return name, best.Confidence, true
}

// Normalize lower-cases an encoding name and folds common aliases.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "utf8", "utf-8-sig", "utf8-sig":
		return UTF8
	case "gb-18030":
		return "gb18030"
	case "cp936":
		return "gbk"
	case "big5hkscs", "big5-hkscs", "cp950":
		return "big5"
	}
	return n
}

// Supported reports whether name can be decoded.
func Supported(name string) bool {
	_, err := lookup(Normalize(name))
	return err == nil
}

func lookup(name string) (xencoding.Encoding, error) {
	if name == UTF8 {
		return unicode.UTF8, nil
	}
	if enc, ok := registry[name]; ok {
		return enc, nil
	}
	return htmlindex.Get(name)
}

// DecodeStrict decodes data as name and fails if any byte sequence is
// invalid in that encoding.
func DecodeStrict(data []byte, name string) (string, error) {
	name = Normalize(name)
	if name == UTF8 {
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", errors.NewKind(errors.DecodeFailed, "invalid utf-8", nil)
		}
		return string(data), nil
	}

	enc, err := lookup(name)
	if err != nil {
		return "", errors.NewKind(errors.DecodeFailed, "unknown encoding "+name, err)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", errors.NewKind(errors.DecodeFailed, "decode as "+name, err)
	}
	// x/text decoders substitute U+FFFD instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errors.NewKind(errors.DecodeFailed, "invalid byte sequence for "+name, nil)
	}
	return string(out), nil
}

// DecodeLenient decodes data as name, replacing invalid sequences with
// U+FFFD. It never fails; an unknown name degrades to UTF-8.
func DecodeLenient(data []byte, name string) string {
	name = Normalize(name)
	enc, err := lookup(name)
	if err != nil || name == UTF8 {
		return strings.ToValidUTF8(string(bytes.TrimPrefix(data, utf8BOM)), string(utf8.RuneError))
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	return string(out)
}
