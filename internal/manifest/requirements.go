package manifest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// A single dependency constraint from a requirements file.
type Requirement struct {
	Name       string // Canonical package name.
	Constraint string // Version specifier, e.g. "==2.31.0". Empty means any version.
}

// Matches a valid package name (letters, digits, and interior ._- runs).
var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// Version comparison operators accepted in a constraint, longest first so
// that "==" is not split as "=" twice and "===" is rejected outright.
var constraintOperators = []string{"==", "!=", "<=", ">=", "~=", "<", ">"}

// Parses a requirements file into a list of constraints.
//
// Each non-empty line declares one package with an optional version
// specifier and optional extras. Comments introduced by '#' and blank
// lines are skipped. A syntactically invalid entry fails parsing so the
// build aborts before any installer runs.
func ParseRequirements(r io.Reader) ([]Requirement, error) {
	var reqs []Requirement

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		req, err := parseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrRequirements, lineNo, err)
		}
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequirements, err)
	}

	return reqs, nil
}

// Parses a single requirement entry of the form "name[extras]<op>version".
func parseRequirement(entry string) (Requirement, error) {
	name, constraint := splitConstraint(entry)

	// Extras ("name[extra1,extra2]") are passed through to the installer;
	// only the base name is validated.
	if i := strings.IndexByte(name, '['); i >= 0 {
		if !strings.HasSuffix(name, "]") {
			return Requirement{}, fmt.Errorf("unterminated extras in %q", entry)
		}
		name = name[:i]
	}

	name = strings.TrimSpace(name)
	if !packageNamePattern.MatchString(name) {
		return Requirement{}, fmt.Errorf("invalid package name in %q", entry)
	}

	if constraint != "" {
		if err := validateConstraint(constraint); err != nil {
			return Requirement{}, fmt.Errorf("%w in %q", err, entry)
		}
	}

	return Requirement{Name: name, Constraint: constraint}, nil
}

// Splits an entry at the first comparison operator.
func splitConstraint(entry string) (name, constraint string) {
	for i := 0; i < len(entry); i++ {
		switch entry[i] {
		case '=', '!', '<', '>', '~':
			return strings.TrimSpace(entry[:i]), strings.TrimSpace(entry[i:])
		}
	}
	return entry, ""
}

// Validates a version specifier, which may list several comma-separated
// clauses (e.g. ">=1.0,<2.0").
func validateConstraint(constraint string) error {
	for clause := range strings.SplitSeq(constraint, ",") {
		clause = strings.TrimSpace(clause)

		op := matchOperator(clause)
		if op == "" {
			return fmt.Errorf("invalid version specifier %q", clause)
		}

		version := strings.TrimSpace(clause[len(op):])
		if version == "" || strings.HasPrefix(version, "=") {
			return fmt.Errorf("invalid version specifier %q", clause)
		}
	}
	return nil
}

// Returns the operator prefixing the clause, or "" if none matches.
func matchOperator(clause string) string {
	for _, op := range constraintOperators {
		if strings.HasPrefix(clause, op) {
			return op
		}
	}
	return ""
}
