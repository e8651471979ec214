package extraction

// AuthError reports that the provider rejected our credential. Retrying
// cannot fix it, so the retry loop stops on the first occurrence.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// ConfigError reports a missing provider credential on our side. The call
// never leaves the process.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
