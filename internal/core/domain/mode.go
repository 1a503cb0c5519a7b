package domain

// ModeEnvVar is the environment variable selecting the build mode.
const ModeEnvVar = "NODE_ENV"

// BuildMode selects development or production output.
type BuildMode string

const (
	// ModeDevelopment emits source maps.
	ModeDevelopment BuildMode = "development"
	// ModeProduction emits no source maps.
	ModeProduction BuildMode = "production"
)

// ModeFromEnv derives the build mode from the environment.
// An unset, empty or "development" value selects development; anything else selects production.
func ModeFromEnv(lookup func(string) (string, bool)) BuildMode {
	v, ok := lookup(ModeEnvVar)
	if !ok || v == "" || v == string(ModeDevelopment) {
		return ModeDevelopment
	}
	return ModeProduction
}

// IsDev reports whether m is the development mode.
func (m BuildMode) IsDev() bool {
	return m == ModeDevelopment
}

func (m BuildMode) String() string {
	return string(m)
}
