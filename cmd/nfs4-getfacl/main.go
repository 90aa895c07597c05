// Copyright (c) 2017 Cory Close. See LICENSE file.

// Command nfs4-getfacl prints the POSIX-translated view of one or
// more objects' ACLs, probing the NFSv4 xattr first and falling back
// to the POSIX xattrs or mode bits.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	nfs4acl "github.com/coreacl/libnfs4acl-go"
	"github.com/coreacl/libnfs4acl-go/internal/idmap"
)

func main() {
	var (
		defaultACL bool
		omitHeader bool
	)

	cmd := &cobra.Command{
		Use:   "nfs4-getfacl PATH [PATH...]",
		Short: "Display the access control list of a file or directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapper := &idmap.Mapper{}
			kind := nfs4acl.KindAccess
			if defaultACL {
				kind = nfs4acl.KindDefault
			}

			var firstErr error
			for _, path := range args {
				acl, err := nfs4acl.GetACL(path, kind, mapper)
				if err != nil {
					fmt.Fprintf(os.Stderr, "nfs4-getfacl: %s: %v\n", path, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				if !omitHeader {
					fmt.Printf("# file: %s\n", path)
				}
				fmt.Print(acl.String())
			}
			return firstErr
		},
	}

	cmd.Flags().BoolVarP(&defaultACL, "default", "d", false, "display the default ACL instead of the access ACL")
	cmd.Flags().BoolVar(&omitHeader, "omit-header", false, "omit the \"# file:\" header for each path")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
