package featureflag

import (
	"slices"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// FeatureFlag is the set of flags a server runs with. A nil FeatureFlag has
// no flag set.
type FeatureFlag map[Flag]struct{}

// New parses flags as given on the command line or in SPATIAL_FEATURE_FLAGS.
// Names are case insensitive and surrounding spaces are ignored. Unknown
// flags are kept and reported with a warning.
func New(flags []string) FeatureFlag {
	f := make(FeatureFlag, len(flags))
	for _, s := range flags {
		flag := Flag(strings.ToUpper(strings.TrimSpace(s)))
		if flag == "" {
			continue
		}

		if !slices.Contains(knownFlags, flag) {
			logs.Warn(errors.New("unknown feature flag").WithTag("flag", flag))
		}
		f[flag] = struct{}{}
	}
	return f
}

func (f FeatureFlag) IsSet(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfSet runs do when flag is set.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if f.IsSet(flag) {
		do()
	}
}

// IfNotSet runs do when flag is not set.
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if !f.IsSet(flag) {
		do()
	}
}

// Flags returns the set flags sorted by name.
func (f FeatureFlag) Flags() []Flag {
	flags := make([]Flag, 0, len(f))
	for flag := range f {
		flags = append(flags, flag)
	}
	slices.Sort(flags)
	return flags
}
