package listsync

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	sniffLen = 3072

	mimePDF  = "application/pdf"
	mimeDOC  = "application/msword"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Accepted résumé extensions and the sniffed types (or container types)
// each may present as.
var acceptedResume = map[string]struct {
	contentType string
	sniffed     []string
}{
	"pdf":  {contentType: mimePDF, sniffed: []string{mimePDF}},
	"doc":  {contentType: mimeDOC, sniffed: []string{mimeDOC, "application/x-ole-storage"}},
	"docx": {contentType: mimeDOCX, sniffed: []string{mimeDOCX, "application/zip"}},
}

// Resume is an uploaded file handle. Size is the declared length in bytes.
// Content is rewound before every read so a failed submit can be retried
// with the same handle.
type Resume struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

type preparedResume struct {
	ext         string
	contentType string
	size        int64
	body        io.Reader
}

func prepareResume(r *Resume, maxBytes int64) (preparedResume, error) {
	if r == nil || r.Content == nil {
		return preparedResume{}, fmt.Errorf("%w: missing file", ErrInvalidResume)
	}

	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(r.Filename)), ".")
	accepted, ok := acceptedResume[strings.ToLower(ext)]
	if !ok {
		return preparedResume{}, fmt.Errorf("%w: unsupported extension %q", ErrInvalidResume, ext)
	}
	if r.Size <= 0 {
		return preparedResume{}, fmt.Errorf("%w: empty file", ErrInvalidResume)
	}
	if maxBytes > 0 && r.Size > maxBytes {
		return preparedResume{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidResume, r.Size, maxBytes)
	}

	if _, err := r.Content.Seek(0, io.SeekStart); err != nil {
		return preparedResume{}, fmt.Errorf("%w: rewind: %v", ErrInvalidResume, err)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r.Content, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return preparedResume{}, fmt.Errorf("%w: %v", ErrInvalidResume, err)
	}
	head = head[:n]

	if !sniffMatches(mimetype.Detect(head), accepted.sniffed) {
		return preparedResume{}, fmt.Errorf("%w: content does not look like .%s", ErrInvalidResume, ext)
	}

	return preparedResume{
		ext:         ext,
		contentType: accepted.contentType,
		size:        r.Size,
		body:        io.MultiReader(bytes.NewReader(head), r.Content),
	}, nil
}

func sniffMatches(m *mimetype.MIME, allowed []string) bool {
	for ; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}

// resumePath builds {owner}/{unix-millis}-{token}.{ext}.
func resumePath(owner uuid.UUID, now time.Time, token string, ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", owner, now.UnixMilli(), token, ext)
}

func randomToken() string {
	return strconv.FormatUint(rand.Uint64(), 36)
}
