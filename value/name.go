package value

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Name is a personal name split into its components.
type Name struct {
	Full   string
	Given  string
	Middle string
	// Particle is a nobiliary particle preceding the family name (van, de).
	Particle string
	Family   string
	Suffix   string
}

var (
	nameSuffixes  = []string{"Jr.", "Jr", "Sr.", "Sr", "III", "II", "IV", "PhD", "Ph.D.", "MD", "M.D.", "Esq.", "Esq"}
	nameParticles = []string{"van", "von", "de", "del", "della", "di", "da", "le", "la", "du", "des", "den", "der", "ter", "ten", "al", "ibn"}

	invertedName = regexp.MustCompile(`^([^,]+),\s*(.+)$`)
)

// ParseName splits a name written "Given Middle Family" or
// "Family, Given Middle". The boolean is false for blank input.
func ParseName(s string) (Name, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return Name{}, false
	}
	n := Name{Full: s}

	if m := invertedName.FindStringSubmatch(s); m != nil {
		n.Particle, n.Family = splitParticle(strings.Fields(m[1]))
		rest := m[2]
		rest, n.Suffix = cutSuffix(rest)
		if rest == "" {
			// "Smith, Jr." style input
			return n, true
		}
		parts := strings.Fields(rest)
		n.Given = parts[0]
		n.Middle = strings.Join(parts[1:], " ")
		return n, true
	}

	rest, suffix := cutSuffix(s)
	n.Suffix = suffix
	parts := strings.Fields(rest)
	if len(parts) == 1 {
		n.Family = parts[0]
		return n, true
	}

	familyStart := len(parts) - 1
	for familyStart > 1 && isParticle(parts[familyStart-1]) {
		familyStart--
	}
	n.Given = parts[0]
	n.Middle = strings.Join(parts[1:familyStart], " ")
	n.Particle, n.Family = splitParticle(parts[familyStart:])
	return n, true
}

func cutSuffix(s string) (string, string) {
	for _, suffix := range nameSuffixes {
		for _, sep := range []string{", ", " "} {
			if strings.HasSuffix(s, sep+suffix) {
				return strings.TrimSpace(strings.TrimSuffix(s, sep+suffix)), suffix
			}
		}
		if s == suffix {
			return "", suffix
		}
	}
	return s, ""
}

func splitParticle(words []string) (string, string) {
	i := 0
	for i < len(words)-1 && isParticle(words[i]) {
		i++
	}
	return strings.Join(words[:i], " "), strings.Join(words[i:], " ")
}

func isParticle(word string) bool {
	for _, p := range nameParticles {
		if strings.EqualFold(word, p) {
			return true
		}
	}
	return false
}

// Surname returns the family name with its particle.
func (n Name) Surname() string {
	return joinNonEmpty(" ", n.Particle, n.Family)
}

// Inverted returns "Particle Family, Given Middle, Suffix".
func (n Name) Inverted() string {
	out := n.Surname()
	if first := joinNonEmpty(" ", n.Given, n.Middle); first != "" {
		out += ", " + first
	}
	if n.Suffix != "" {
		out += ", " + n.Suffix
	}
	return out
}

// Direct returns "Given Middle Particle Family Suffix".
func (n Name) Direct() string {
	return joinNonEmpty(" ", n.Given, n.Middle, n.Particle, n.Family, n.Suffix)
}

// Initials returns the initials of the given and middle names ("J. R.").
func (n Name) Initials() string {
	var initials []string
	for _, part := range strings.Fields(joinNonEmpty(" ", n.Given, n.Middle)) {
		for _, piece := range strings.Split(part, "-") {
			r, _ := utf8.DecodeRuneInString(piece)
			if r == utf8.RuneError {
				continue
			}
			initials = append(initials, string(r)+".")
		}
	}
	return strings.Join(initials, " ")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// SplitNames splits a list of names separated by semicolons, pipes or " and ".
func SplitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	switch {
	case strings.Contains(s, ";"):
		parts = strings.Split(s, ";")
	case strings.Contains(s, "|"):
		parts = strings.Split(s, "|")
	case strings.Contains(s, " and ") && !strings.Contains(s, ","):
		parts = strings.Split(s, " and ")
	default:
		parts = []string{s}
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
