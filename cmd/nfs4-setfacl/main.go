// Copyright (c) 2017 Cory Close. See LICENSE file.

// Command nfs4-setfacl modifies an object's ACL, writing through the
// NFSv4 translator when an NFSv4 xattr governs the object and through
// the POSIX codec otherwise.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	nfs4acl "github.com/coreacl/libnfs4acl-go"
	"github.com/coreacl/libnfs4acl-go/internal/idmap"
	"github.com/coreacl/libnfs4acl-go/internal/posixacl"
)

// parseEntry accepts setfacl-style entry text: tag[:qualifier]:perm,
// e.g. "u::rwx", "user:1000:rx", "g:100:r-x", "o::r--", "m::rwx".
// Qualifiers are numeric uids/gids; names are not resolved.
func parseEntry(text string) (*posixacl.Entry, error) {
	fields := strings.Split(text, ":")
	if len(fields) < 2 {
		return nil, fmt.Errorf("malformed entry %q", text)
	}
	permField := fields[len(fields)-1]
	qualifier := ""
	if len(fields) == 3 {
		qualifier = fields[1]
	}

	var perm uint16
	for _, r := range permField {
		switch r {
		case 'r':
			perm |= posixacl.PermRead
		case 'w':
			perm |= posixacl.PermWrite
		case 'x':
			perm |= posixacl.PermExecute
		case '-':
		default:
			return nil, fmt.Errorf("entry %q: unrecognised permission char %q", text, r)
		}
	}

	switch fields[0] {
	case "u", "user":
		if qualifier == "" {
			return posixacl.NewEntry(posixacl.TagUserObj, 0, perm), nil
		}
		uid, err := strconv.ParseUint(qualifier, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("entry %q: user qualifier must be numeric uid: %w", text, err)
		}
		return posixacl.NewEntry(posixacl.TagUser, uint32(uid), perm), nil
	case "g", "group":
		if qualifier == "" {
			return posixacl.NewEntry(posixacl.TagGroupObj, 0, perm), nil
		}
		gid, err := strconv.ParseUint(qualifier, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("entry %q: group qualifier must be numeric gid: %w", text, err)
		}
		return posixacl.NewEntry(posixacl.TagGroup, uint32(gid), perm), nil
	case "m", "mask":
		return posixacl.NewEntry(posixacl.TagMask, 0, perm), nil
	case "o", "other":
		return posixacl.NewEntry(posixacl.TagOther, 0, perm), nil
	default:
		return nil, fmt.Errorf("entry %q: unrecognised tag %q", text, fields[0])
	}
}

func main() {
	var (
		defaultACL bool
		modify     []string
	)

	cmd := &cobra.Command{
		Use:   "nfs4-setfacl PATH [PATH...]",
		Short: "Modify the access control list of a file or directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := make([]*posixacl.Entry, 0, len(modify))
			for _, text := range modify {
				e, err := parseEntry(text)
				if err != nil {
					return err
				}
				entries = append(entries, e)
			}

			mapper := &idmap.Mapper{}
			kind := nfs4acl.KindAccess
			if defaultACL {
				kind = nfs4acl.KindDefault
			}

			for _, path := range args {
				acl, err := nfs4acl.GetACL(path, kind, mapper)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, e := range entries {
					acl.AddEntry(e)
				}
				if err := nfs4acl.SetACL(path, kind, acl, mapper); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&defaultACL, "default", "d", false, "operate on the default ACL instead of the access ACL")
	cmd.Flags().StringArrayVarP(&modify, "modify", "m", nil, "entry to set or replace, e.g. u:1000:rwx")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nfs4-setfacl:", err)
		os.Exit(1)
	}
}
