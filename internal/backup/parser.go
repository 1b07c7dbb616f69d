package backup

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/edvin/opsportal/internal/model"
)

const archiveExt = ".zip"

var archiveNamePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{4}\.zip$`)

// Parser maps object keys of the form
// {prefix}/{organization}/{project}/{repository}/{yyyy-MM-dd-HHmm}.zip
// to captures and back.
type Parser struct {
	prefix string
}

func NewParser(prefix string) Parser {
	return Parser{prefix: strings.Trim(prefix, "/")}
}

// Root is the listing prefix covering every capture.
func (p Parser) Root() string {
	if p.prefix == "" {
		return ""
	}
	return p.prefix + "/"
}

// RepositoryPrefix is the listing prefix covering every capture of id.
func (p Parser) RepositoryPrefix(id model.RepositoryIdentity) (string, error) {
	if err := checkIdentity(id); err != nil {
		return "", err
	}
	return p.Root() + id.String() + "/", nil
}

// ObjectKey returns the key of the archive that ref names.
func (p Parser) ObjectKey(ref model.CaptureRef) (string, error) {
	prefix, err := p.RepositoryPrefix(ref.RepositoryIdentity)
	if err != nil {
		return "", err
	}
	if _, err := parseStamp(ref.BackupID); err != nil {
		return "", fmt.Errorf("backup id %q: %w", ref.BackupID, err)
	}
	return prefix + ref.BackupID + archiveExt, nil
}

// Parse rejects any key that does not have exactly four segments below the
// prefix, a valid capture stamp and the .zip extension. Size and retention
// are left for the caller.
func (p Parser) Parse(key string) (model.BackupCapture, error) {
	rest := key
	if p.prefix != "" {
		if !strings.HasPrefix(key, p.prefix+"/") {
			return model.BackupCapture{}, malformed(key, "outside of prefix "+p.prefix)
		}
		rest = key[len(p.prefix)+1:]
	}

	segments := strings.Split(rest, "/")
	if len(segments) != 4 {
		return model.BackupCapture{}, malformed(key, fmt.Sprintf("expected 4 path segments, got %d", len(segments)))
	}
	id := model.RepositoryIdentity{
		Organization: segments[0],
		Project:      segments[1],
		Repository:   segments[2],
	}
	if err := checkIdentity(id); err != nil {
		return model.BackupCapture{}, malformed(key, err.Error())
	}

	name := segments[3]
	if !archiveNamePattern.MatchString(name) {
		return model.BackupCapture{}, malformed(key, "file name is not yyyy-MM-dd-HHmm.zip")
	}
	stamp := strings.TrimSuffix(name, archiveExt)
	capturedAt, err := parseStamp(stamp)
	if err != nil {
		return model.BackupCapture{}, malformed(key, err.Error())
	}

	return model.BackupCapture{
		RepositoryIdentity: id,
		ID:                 stamp,
		CapturedAt:         capturedAt,
		ObjectKey:          key,
	}, nil
}

func parseStamp(stamp string) (time.Time, error) {
	if !archiveNamePattern.MatchString(stamp + archiveExt) {
		return time.Time{}, fmt.Errorf("capture stamp %q does not match yyyy-MM-dd-HHmm", stamp)
	}
	t, err := time.Parse(model.CaptureStampLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("capture stamp %q: %w", stamp, err)
	}
	return t, nil
}

func checkIdentity(id model.RepositoryIdentity) error {
	for _, s := range []string{id.Organization, id.Project, id.Repository} {
		if s == "" {
			return fmt.Errorf("empty segment in %q", id.String())
		}
		if strings.Contains(s, "/") {
			return fmt.Errorf("segment %q contains a slash", s)
		}
	}
	return nil
}

func malformed(key, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrMalformedKey, key, reason)
}
