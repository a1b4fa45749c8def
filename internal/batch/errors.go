package batch

import "errors"

// ErrManifestUnreadable is returned when a batch directory has no
// readable metadata manifest. The whole analysis run fails on this, since
// without the manifest we cannot know what the batch contains.
var ErrManifestUnreadable = errors.New("batch manifest unreadable")
