// Package convert transforms Simplified Chinese text into Taiwan-standard
// Traditional Chinese.
package convert

import (
	"path/filepath"
	"strings"

	"github.com/liuzl/gocc"

	"convertzh/internal/errors"
	"convertzh/internal/log"
)

// DefaultProfile converts Simplified to Traditional with Taiwan phrasing.
const DefaultProfile = "s2twp"

// Converter converts text and entry names. Implementations are pure: the
// same input always yields the same output.
type Converter interface {
	// Convert converts a block of text.
	Convert(text string) (string, error)

	// ConvertName converts a file name, keeping its extension untouched.
	ConvertName(name string) (string, error)

	// ConvertDirName converts a directory name as a whole.
	ConvertDirName(name string) (string, error)
}

// OpenCC is a Converter backed by the OpenCC dictionaries.
type OpenCC struct {
	profile string
	cc      *gocc.OpenCC
	logger  *log.Logger
}

// Ensure OpenCC implements the Converter interface
var _ Converter = (*OpenCC)(nil)

// NewOpenCC loads the dictionaries for profile. An empty profile selects
// DefaultProfile.
func NewOpenCC(profile string, logger *log.Logger) (*OpenCC, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if logger == nil {
		logger = log.Discard()
	}

	cc, err := gocc.New(profile)
	if err != nil {
		return nil, errors.NewConfigError("cannot load conversion profile", "profile", errors.InvalidConfig, err)
	}
	logger.With(log.F("profile", profile)).Debug("converter initialized")
	return &OpenCC{profile: profile, cc: cc, logger: logger}, nil
}

// Profile returns the loaded profile name.
func (c *OpenCC) Profile() string { return c.profile }

func (c *OpenCC) Convert(text string) (string, error) {
	if text == "" {
		return text, nil
	}
	out, err := c.cc.Convert(text)
	if err != nil {
		return "", errors.NewKind(errors.ConversionFailed, "convert with "+c.profile, err)
	}
	return out, nil
}

func (c *OpenCC) ConvertName(name string) (string, error) {
	return ConvertFileName(c, name)
}

func (c *OpenCC) ConvertDirName(name string) (string, error) {
	return c.Convert(name)
}

// ConvertFileName converts everything before the extension of name with c.
// A leading dot is part of the stem, so ".后台" has no extension.
func ConvertFileName(c Converter, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	converted, err := c.Convert(stem)
	if err != nil {
		return "", err
	}
	return converted + ext, nil
}
