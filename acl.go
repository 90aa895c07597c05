// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

// ACL is an ordered list of NFSv4 access control entries together with
// the directory-ness of the object it was read from or will be written
// to. Directory-ness changes how DELETE_CHILD and the
// LIST_DIRECTORY/ADD_FILE/ADD_SUBDIRECTORY aliases of
// READ_DATA/WRITE_DATA/APPEND_DATA are interpreted.
type ACL struct {
	IsDirectory bool
	Entries     []*ACE
}

// NewACL returns an empty ACL for the given object kind.
func NewACL(isDirectory bool) *ACL {
	return &ACL{IsDirectory: isDirectory}
}

// Add appends an ACE to the end of the list.
func (acl *ACL) Add(ace *ACE) {
	acl.Entries = append(acl.Entries, ace)
}

// Remove deletes the first occurrence of ace by identity, preserving
// order of the remaining entries. Mirrors acl_nfs4_remove_ace's
// single-forward-walk removal from an intrusive list, expressed against
// a Go slice instead.
func (acl *ACL) Remove(ace *ACE) bool {
	for i, e := range acl.Entries {
		if e == ace {
			acl.Entries = append(acl.Entries[:i], acl.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy whose entries can be mutated independently
// of the receiver. Used to give the destructive inheritance-stripping
// pass in translate_to_posix.go a private scratch copy.
func (acl *ACL) Clone() *ACL {
	out := &ACL{IsDirectory: acl.IsDirectory, Entries: make([]*ACE, len(acl.Entries))}
	for i, e := range acl.Entries {
		out.Entries[i] = e.clone()
	}
	return out
}

// String renders the whole ACL in compact getfacl-style notation, one
// ACE per line.
func (acl *ACL) String() string {
	out := ""
	for i, ace := range acl.Entries {
		if i > 0 {
			out += "\n"
		}
		out += ace.String()
	}
	return out
}

// SetWrite ORs MaskWriteData into every entry's access mask.
func (acl *ACL) SetWrite() {
	for _, ace := range acl.Entries {
		ace.applyAccessMask(MaskWriteData)
	}
}

// ClearWrite clears MaskWriteData from every entry's access mask.
func (acl *ACL) ClearWrite() {
	for _, ace := range acl.Entries {
		ace.removeAccessMask(MaskWriteData)
	}
}
