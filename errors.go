// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"errors"
	"fmt"
)

// Sentinel errors mirror the errno taxonomy a POSIX ACL implementation
// surfaces to callers. ErrRangeExceeded normally stays internal to the
// getxattr resize-and-retry loop in probe.go; it only reaches a caller
// if the attribute's size changes again between the resize query and
// the follow-up read. ErrTranslationRefused wraps ErrInvalidArgument,
// so a refused translation matches both with errors.Is.
var (
	ErrInvalidArgument    = errors.New("nfs4acl: invalid argument")
	ErrAccessDenied       = errors.New("nfs4acl: access denied")
	ErrRangeExceeded      = errors.New("nfs4acl: attribute buffer too small")
	ErrNoAttribute        = errors.New("nfs4acl: attribute not present")
	ErrNotSupported       = errors.New("nfs4acl: operation not supported")
	ErrTranslationRefused = fmt.Errorf("nfs4acl: acl cannot be translated: %w", ErrInvalidArgument)
)
