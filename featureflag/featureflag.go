package featureflag

import (
	"slices"

	"github.com/samber/lo"
)

// FeatureFlag is a lookup map for features that is enabled or disabled
type FeatureFlag map[Flag]struct{}

// New return a new feature flags initialized with list of flags
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag)
	for _, f := range flags {
		featureFlag[Flag(f)] = struct{}{}
	}
	return featureFlag
}

// IsSet reports whether flag is set in the feature flags
func (f FeatureFlag) IsSet(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfSet runs function `do ` if flag is set in the feature flags
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if !f.IsSet(flag) {
		return
	}
	do()
}

// IfNotSet runs function `do` if flag is not set in the feature flags
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if f.IsSet(flag) {
		return
	}
	do()
}

// List returns the set flags, sorted.
func (f FeatureFlag) List() []Flag {
	flags := lo.Keys(f)
	slices.Sort(flags)
	return flags
}

// Unknown returns the given flags that Kenaz does not support.
func Unknown(flags []string) []string {
	return lo.Reject(flags, func(f string, _ int) bool {
		return slices.Contains(knownFlags, Flag(f))
	})
}
