// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"fmt"

	"github.com/coreacl/libnfs4acl-go/internal/idmap"
	"github.com/coreacl/libnfs4acl-go/internal/posixacl"
)

// aceState is the per-principal {allow, deny} accumulator the
// bitmask-accumulation translator maintains while walking the ACE
// list in order.
type aceState struct {
	allow uint32
	deny  uint32
}

// allowBits ORs in every bit of mask not already denied: denies seen
// earlier in the ACE list shadow later allows.
func (s *aceState) allowBits(mask uint32) {
	s.allow |= mask &^ s.deny
}

// denyBits ORs in every bit of mask not already allowed.
func (s *aceState) denyBits(mask uint32) {
	s.deny |= mask &^ s.allow
}

// namedState pairs a uid or gid with its accumulator, for the dynamic
// named-user / named-group arrays.
type namedState struct {
	id    uint32
	state aceState
}

func allowBitsArray(arr []namedState, mask uint32) {
	for i := range arr {
		arr[i].state.allowBits(mask)
	}
}

func denyBitsArray(arr []namedState, mask uint32) {
	for i := range arr {
		arr[i].state.denyBits(mask)
	}
}

// posixState is the accumulator for the whole ACL: one fixed state per
// well-known principal, plus growable arrays for named users/groups
// discovered while walking the ACE list.
type posixState struct {
	owner, group, other, everyone, mask aceState
	users, groups                       []namedState
}

func (st *posixState) addToMask(s *aceState) {
	st.mask.allow |= s.allow
}

// findUID returns the index of uid's entry in st.users, creating one
// seeded from the current "everyone" accumulator if this is the first
// ACE naming that uid.
func (st *posixState) findUID(uid uint32) int {
	for i := range st.users {
		if st.users[i].id == uid {
			return i
		}
	}
	st.users = append(st.users, namedState{id: uid, state: st.everyone})
	return len(st.users) - 1
}

// findGID mirrors findUID but seeds from "other", matching the
// asymmetry of the original bitmask-accumulation algorithm: a
// first-seen named group inherits the OTHER state rather than the
// EVERYONE accumulator a first-seen named user inherits.
func (st *posixState) findGID(gid uint32) int {
	for i := range st.groups {
		if st.groups[i].id == gid {
			return i
		}
	}
	st.groups = append(st.groups, namedState{id: gid, state: st.other})
	return len(st.groups) - 1
}

// processOneACE folds a single NFSv4 ACE into the running state:
// GROUP_OBJ/GROUP/OTHER allows propagate to wider scopes, and a DENY
// is always narrowed by what's already been allowed (and vice versa).
func processOneACE(st *posixState, ace *ACE, mapper *idmap.Mapper) error {
	tag, err := ace.classify()
	if err != nil {
		return err
	}
	mask := ace.AccessMask
	isAllow := ace.Type == TypeAllow

	switch tag {
	case tagUserObj:
		if isAllow {
			st.owner.allowBits(mask)
		} else {
			st.owner.denyBits(mask)
		}

	case tagUser:
		uid, err := mapper.NameToUID(ace.Who)
		if err != nil {
			return fmt.Errorf("resolving named user %q: %w", ace.Who, err)
		}
		i := st.findUID(uid)
		if isAllow {
			st.users[i].state.allowBits(mask)
			st.owner.allowBits(st.users[i].state.allow)
		} else {
			st.users[i].state.denyBits(mask)
		}

	case tagGroupObj:
		if isAllow {
			st.group.allowBits(mask)
			propagated := st.group.allow
			st.owner.allowBits(propagated)
			st.everyone.allowBits(propagated)
			allowBitsArray(st.users, propagated)
		} else {
			st.group.denyBits(mask)
		}

	case tagGroup:
		gid, err := mapper.NameToGID(ace.Who)
		if err != nil {
			return fmt.Errorf("resolving named group %q: %w", ace.Who, err)
		}
		i := st.findGID(gid)
		if isAllow {
			st.groups[i].state.allowBits(mask)
			propagated := st.groups[i].state.allow
			st.owner.allowBits(propagated)
			st.everyone.allowBits(propagated)
			allowBitsArray(st.users, propagated)
		} else {
			st.groups[i].state.denyBits(mask)
		}

	case tagOther:
		if isAllow {
			st.owner.allowBits(mask)
			st.group.allowBits(mask)
			st.other.allowBits(mask)
			st.everyone.allowBits(mask)
			allowBitsArray(st.users, mask)
			allowBitsArray(st.groups, mask)
		} else {
			st.owner.denyBits(mask)
			st.group.denyBits(mask)
			st.other.denyBits(mask)
			st.everyone.denyBits(mask)
			denyBitsArray(st.users, mask)
			denyBitsArray(st.groups, mask)
		}
	}
	return nil
}

// posixStateToACL materialises the accumulated state into POSIX
// entries, in order USER_OBJ, USER*, GROUP_OBJ, GROUP*, MASK (only
// when named entries exist), OTHER.
func posixStateToACL(st *posixState, isDir bool) *posixacl.ACL {
	nace := 3
	if len(st.users) > 0 || len(st.groups) > 0 {
		nace = 4 + len(st.users) + len(st.groups)
	}
	out := posixacl.New(nace)

	out.AddEntry(posixacl.NewEntry(posixacl.TagUserObj, 0, setModeFromNFS4(st.owner.allow, isDir)))

	for i := range st.users {
		u := &st.users[i]
		out.AddEntry(posixacl.NewEntry(posixacl.TagUser, u.id, setModeFromNFS4(u.state.allow, isDir)))
		st.addToMask(&u.state)
	}

	out.AddEntry(posixacl.NewEntry(posixacl.TagGroupObj, 0, setModeFromNFS4(st.group.allow, isDir)))
	st.addToMask(&st.group)

	for i := range st.groups {
		g := &st.groups[i]
		out.AddEntry(posixacl.NewEntry(posixacl.TagGroup, g.id, setModeFromNFS4(g.state.allow, isDir)))
		st.addToMask(&g.state)
	}

	if nace > 3 {
		out.AddEntry(posixacl.NewEntry(posixacl.TagMask, 0, setModeFromNFS4(st.mask.allow, isDir)))
	}

	out.AddEntry(posixacl.NewEntry(posixacl.TagOther, 0, setModeFromNFS4(st.other.allow, isDir)))

	return out
}

const fileOrDirInherit = FlagFileInherit | FlagDirectoryInherit

// stripForPOSIXType trims the ACE list to the entries relevant to
// kind: for access ACLs, drop purely-inherited ACEs (INHERIT_ONLY
// set); for default ACLs, drop ACEs that don't propagate to children
// at all.
func stripForPOSIXType(acl *ACL, kind ACLKind) {
	kept := acl.Entries[:0:0]
	for _, ace := range acl.Entries {
		switch kind {
		case KindDefault:
			if ace.Flags&fileOrDirInherit != 0 {
				kept = append(kept, ace)
			}
		default:
			if ace.Flags&FlagInheritOnly == 0 {
				kept = append(kept, ace)
			}
		}
	}
	acl.Entries = kept
}

// TranslateToPOSIX is the canonical NFSv4->POSIX translator: bitmask
// accumulation over a single ordered walk of the ACL, tolerant of any
// ACE ordering the shape-driven validator would reject.
func TranslateToPOSIX(acl *ACL, kind ACLKind, mapper *idmap.Mapper) (*posixacl.ACL, error) {
	if kind == KindDefault && !acl.IsDirectory {
		return nil, fmt.Errorf("%w: default ACL requested on non-directory", ErrInvalidArgument)
	}

	work := acl.Clone()
	stripForPOSIXType(work, kind)

	if kind == KindDefault && len(work.Entries) == 0 {
		return posixacl.New(0), nil
	}

	st := &posixState{}
	for _, ace := range work.Entries {
		if err := processOneACE(st, ace, mapper); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTranslationRefused, err)
		}
	}

	out := posixStateToACL(st, acl.IsDirectory)
	if err := out.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranslationRefused, err)
	}
	return out, nil
}
