package drive

import (
	"regexp"
	"strings"
)

// MatchKind tags which link shape an identifier was recognized as
type MatchKind int

const (
	MatchUnrecognized MatchKind = iota
	MatchFolderLink             // .../folders/<id>
	MatchOpenIDLink             // ...open?id=<id>
	MatchViewLink               // .../<id>/view
	MatchFolderViewLink         // ...folderview?id=<id>
	MatchUCLink                 // ...uc?id=<id> (file downloads only)
	MatchExportLink             // ...uc?export=download&confirm=...id=<id>
	MatchRawID                  // bare opaque id
)

func (k MatchKind) String() string {
	switch k {
	case MatchFolderLink:
		return "folder link"
	case MatchOpenIDLink:
		return "open-id link"
	case MatchViewLink:
		return "view link"
	case MatchFolderViewLink:
		return "folderview link"
	case MatchUCLink:
		return "uc link"
	case MatchExportLink:
		return "export-download link"
	case MatchRawID:
		return "raw id"
	}
	return "unrecognized"
}

// Match is the result of resolving a raw identifier
type Match struct {
	Kind MatchKind
	ID   string
}

type matcher struct {
	kind MatchKind
	re   *regexp.Regexp
}

func (m matcher) match(input string) (string, bool) {
	if sub := m.re.FindStringSubmatch(input); sub != nil {
		return sub[1], true
	}
	return "", false
}

// Ordered matcher tables. Precedence matters: the first matching pattern
// wins even if a later one would also match, for compatibility with links
// users have bookmarked.
var (
	folderMatchers = []matcher{
		{MatchFolderLink, regexp.MustCompile(`folders/([^/?&#]+)`)},
		{MatchOpenIDLink, regexp.MustCompile(`open\?id=([^/?&#]+)`)},
		{MatchViewLink, regexp.MustCompile(`/([^/?#]+)/view`)},
		{MatchFolderViewLink, regexp.MustCompile(`folderview\?id=([^/?&#]+)`)},
	}

	fileMatchers = []matcher{
		{MatchUCLink, regexp.MustCompile(`uc\?id=([^/?&#]+)`)},
		{MatchOpenIDLink, regexp.MustCompile(`open\?id=([^/?&#]+)`)},
		{MatchViewLink, regexp.MustCompile(`/([^/?#]+)/view`)},
		{MatchExportLink, regexp.MustCompile(`uc\?export=download&confirm=.*?id=([^/?&#]+)`)},
	}

	hasDigit = regexp.MustCompile(`[0-9]`)
)

// looksLikeID is the raw-id heuristic: drive ids contain a digit, a
// hyphen or an underscore.
func looksLikeID(s string) bool {
	return hasDigit.MatchString(s) || strings.ContainsAny(s, "-_")
}

// Resolve turns a raw folder identifier or link into a Match. `uc?id=`
// links are deliberately rejected here: that shape names a file download,
// never a folder, and is handled by ResolveFile only.
func Resolve(input string) (Match, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Match{}, ErrInvalidIdentifier
	}
	if strings.Contains(input, "uc?id=") {
		return Match{}, ErrInvalidIdentifier
	}
	for _, m := range folderMatchers {
		if id, ok := m.match(input); ok {
			return Match{Kind: m.kind, ID: id}, nil
		}
	}
	if strings.Contains(input, "://") {
		return Match{}, ErrInvalidIdentifier
	}
	if looksLikeID(input) {
		return Match{Kind: MatchRawID, ID: input}, nil
	}
	return Match{}, ErrInvalidIdentifier
}

// ResolveFile turns a raw file identifier or download link into a Match.
// Unlike Resolve it accepts `uc?id=` shapes and, as the last resort,
// assumes the input itself is an id. Link suffixes the Drive UI appends
// (`&export=download`, `?usp=drivesdk`) are stripped first.
func ResolveFile(input string) Match {
	input = strings.TrimSpace(input)
	if i := strings.Index(input, "&export=download"); i >= 0 {
		input = input[:i]
	}
	if strings.Contains(input, "file/d/") && strings.Contains(input, "/view") {
		if i := strings.Index(input, "?usp=drivesdk"); i >= 0 {
			input = input[:i]
		}
	}
	for _, m := range fileMatchers {
		if id, ok := m.match(input); ok {
			return Match{Kind: m.kind, ID: id}
		}
	}
	return Match{Kind: MatchRawID, ID: input}
}

// driveLinkRE finds Drive links embedded in free-form command text
var driveLinkRE = regexp.MustCompile(`\bhttps?://drive\.google\.com\S+`)

// FindLinks extracts all Drive links from text
func FindLinks(text string) []string {
	return driveLinkRE.FindAllString(text, -1)
}
