package config

// ApplyDefaults fills in zero-value observability fields. The
// Property fields have no defaults of their own: an unset string
// means "do not enable this property," which ApplyTo already treats
// correctly.
func ApplyDefaults(f *File) {
	if f.Observability.LogLevel == "" {
		f.Observability.LogLevel = "info"
	}
	if f.Observability.LogFormat == "" {
		f.Observability.LogFormat = "json"
	}
}
