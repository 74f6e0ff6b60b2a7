package cache

import "fmt"

// InstallHint carries the machine-readable fields a caller needs to tell
// the user how to install the missing release. The cache never formats a
// human-readable install message itself; presentation belongs to the
// outermost caller.
type InstallHint struct {
	ReferenceName     string
	AnnotationName    string
	AnnotationVersion string
}

// MissingRemoteFileError reports that a URL reference could not be
// resolved: either the fetch failed or downloading was not requested.
type MissingRemoteFileError struct {
	URL  string
	Hint InstallHint
	Err  error
}

func (e *MissingRemoteFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing remote file %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("missing remote file %s: not cached and download not requested", e.URL)
}

func (e *MissingRemoteFileError) Unwrap() error { return e.Err }

// MissingLocalFileError reports that a local path reference does not
// exist (or is empty) and no download or copy could satisfy it.
type MissingLocalFileError struct {
	Path string
	Hint InstallHint
}

func (e *MissingLocalFileError) Error() string {
	return fmt.Sprintf("missing local file %s", e.Path)
}
