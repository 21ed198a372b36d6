package convert

import "convertzh/internal/log"

// Factory is a function that creates a Converter for a profile.
// This allows for dependency injection in tests
type Factory func(profile string, logger *log.Logger) (Converter, error)

// DefaultFactory loads the OpenCC dictionaries.
var DefaultFactory Factory = func(profile string, logger *log.Logger) (Converter, error) {
	return NewOpenCC(profile, logger)
}

// CurrentFactory is the currently active factory
// This can be swapped in tests
var CurrentFactory = DefaultFactory

// SetFactory sets a custom converter factory for dependency injection
func SetFactory(factory Factory) {
	CurrentFactory = factory
}

// ResetFactory resets to the default converter factory
func ResetFactory() {
	CurrentFactory = DefaultFactory
}
