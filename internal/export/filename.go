package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/receipt-directory/constants"
	"github.com/joseph-ayodele/receipt-directory/internal/entity"
)

const (
	maxDescriptionLen  = 30
	defaultDescription = "receipt"
	undatedPrefix      = "undated"
)

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\s\v\p{Z}-]`)
	whitespaceRuns  = regexp.MustCompile(`[\s\v\p{Z}]+`)
)

// ExtensionFor maps a fetched content type to a file extension, defaulting to jpg.
func ExtensionFor(contentType string) string {
	if ext, ok := constants.ContentTypeExtensions[constants.NormalizeContentType(contentType)]; ok {
		return ext
	}
	return constants.DefaultExtension
}

// SanitizeDescription keeps ASCII letters, digits, whitespace and hyphens, turns whitespace
// runs (Unicode spaces included) into underscores, caps the length and trims trailing underscores.
// It falls back to "receipt" when nothing usable remains.
func SanitizeDescription(description string) string {
	s := disallowedChars.ReplaceAllString(description, "")
	s = whitespaceRuns.ReplaceAllString(s, "_")
	if len(s) > maxDescriptionLen {
		s = s[:maxDescriptionLen]
	}
	s = strings.TrimRight(s, "_")
	if s == "" {
		return defaultDescription
	}
	return s
}

// BuildFilename renders "{YYYY-MM-DD}-{description}.{ext}" for a record.
func BuildFilename(r *entity.ExpenseRecord, contentType string) string {
	date := undatedPrefix
	if r.HasDate() {
		date = r.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s-%s.%s", date, SanitizeDescription(r.Description), ExtensionFor(contentType))
}

// ArchiveFilename appends the archive extension to a job's archive name.
func ArchiveFilename(archiveName string) string {
	name := strings.TrimSpace(archiveName)
	if name == "" {
		name = "receipts"
	}
	return name + "." + constants.ArchiveExtension
}

// nameSet hands out archive entry names, suffixing repeats with -2, -3, ...
type nameSet struct {
	used map[string]int
}

func newNameSet() *nameSet {
	return &nameSet{used: map[string]int{}}
}

func (n *nameSet) claim(filename string) string {
	if _, taken := n.used[filename]; !taken {
		n.used[filename] = 1
		return filename
	}
	stem, ext := filename, ""
	if i := strings.LastIndexByte(filename, '.'); i > 0 {
		stem, ext = filename[:i], filename[i:]
	}
	for k := n.used[filename] + 1; ; k++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, k, ext)
		if _, taken := n.used[candidate]; !taken {
			n.used[filename] = k
			n.used[candidate] = 1
			return candidate
		}
	}
}
