package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envRefPattern matches ${...} references and their $${...} escaped form
var envRefPattern = regexp.MustCompile(`\$?\$\{[^}]*\}`)

// SubstituteEnvVars expands environment references in config content:
//
//	${VAR}          value of VAR, empty when unset
//	${VAR:-default} default when VAR is empty or unset
//	${VAR:?message} error when VAR is empty or unset
//	$${VAR}         literal ${VAR}
//
// Every reference is expanded even when one fails; the returned error
// joins all failures.
func SubstituteEnvVars(content string) (string, error) {
	var errs []error

	out := envRefPattern.ReplaceAllStringFunc(content, func(ref string) string {
		if strings.HasPrefix(ref, "$$") {
			return ref[1:]
		}
		value, err := expandEnvRef(ref[2 : len(ref)-1])
		if err != nil {
			errs = append(errs, err)
		}
		return value
	})

	return out, errors.Join(errs...)
}

func expandEnvRef(expr string) (string, error) {
	if name, msg, ok := strings.Cut(expr, ":?"); ok && strings.TrimSpace(name) != "" {
		name = strings.TrimSpace(name)
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
		if msg = strings.TrimSpace(msg); msg == "" {
			msg = fmt.Sprintf("required environment variable %s is not set", name)
		}
		return "", errors.New(msg)
	}

	if name, def, ok := strings.Cut(expr, ":-"); ok && strings.TrimSpace(name) != "" {
		if value := os.Getenv(strings.TrimSpace(name)); value != "" {
			return value, nil
		}
		return strings.TrimSpace(def), nil
	}

	return os.Getenv(expr), nil
}
