package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotProvided is returned when a secret has no value, no file and no prompt.
var ErrNotProvided = errors.New("secret is not provided")

// Source describes where a secret such as a password comes from. The first
// non-empty of File, Value and Prompt wins.
type Source struct {
	// Name is used in error messages.
	Name  string
	Value string
	File  string
	// Prompt asks the user interactively when nothing else is set.
	Prompt func(label string) (string, error)
}

// Load resolves the secret. Values read from a file are trimmed of the
// trailing newline only, so passwords with inner or leading spaces survive.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimRight(string(data), "\r\n")
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if src.Value != "" {
		return src.Value, nil
	}

	if src.Prompt == nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotProvided)
	}

	secret, err := src.Prompt(name)
	if err != nil {
		return "", fmt.Errorf("prompting for %s: %w", name, err)
	}
	if secret == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotProvided)
	}

	return secret, nil
}
