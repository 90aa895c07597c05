// Copyright (c) 2017 Cory Close. See LICENSE file.

package nfs4acl

import (
	"fmt"

	"github.com/coreacl/libnfs4acl-go/internal/idmap"
	"github.com/coreacl/libnfs4acl-go/internal/posixacl"
)

// purgeForEmission prepares the target NFSv4 ACL for re-emission: it
// was fetched from the object before this call, and possibly holds
// both access- and default-flavoured ACEs already) is trimmed so the
// freshly emitted ACEs can be appended without duplicating or
// colliding with whichever half of it this call isn't replacing.
//
//   - purely-effective ACEs (no inheritance flags) are dropped when
//     emitting access (they're about to be replaced);
//   - purely-inherited ACEs (INHERIT_ONLY set) are dropped when
//     emitting default;
//   - dual-use ACEs (inherited and effective both) are flipped to
//     purely the OTHER purity, so they keep governing the half this
//     call isn't touching.
func purgeForEmission(target *ACL, kind ACLKind) {
	kept := target.Entries[:0:0]
	for _, ace := range target.Entries {
		switch {
		case ace.Flags&fileOrDirInherit == 0: // purely effective
			if kind == KindDefault {
				kept = append(kept, ace)
			}
		case ace.Flags&FlagInheritOnly != 0: // purely inherited
			if kind == KindAccess {
				kept = append(kept, ace)
			}
		default: // dual-use
			if kind == KindDefault {
				ace.removeFlags(fileOrDirInherit | FlagInheritOnly)
			} else {
				ace.applyFlags(fileOrDirInherit | FlagInheritOnly)
			}
			kept = append(kept, ace)
		}
	}
	target.Entries = kept
}

// addPair appends a complementary ALLOW/DENY pair for who: the NFSv4
// idiom that encodes a POSIX entry's exact permission set.
func addPair(acl *ACL, flags, mask uint32, who string) {
	acl.Add(NewACE(TypeAllow, flags, mask, who))
	acl.Add(NewACE(TypeDeny, flags, ^mask, who))
}

// TranslateFromPOSIX purges target of ACEs incompatible with kind,
// then appends the ACE sequence that enforces
// pacl's semantics, following the deny/allow ACE-pair emission
// protocol in canonical order: owner pair; per-named-user
// deny-mask+allow+deny triples; a group-owner deny-mask+allow block;
// per-named-group deny-mask+allow blocks; a deferred deny tail
// covering group-owner and every named group (each complementary to
// its own earlier allow, not to the shared deny-mask); everyone pair.
func TranslateFromPOSIX(target *ACL, pacl *posixacl.ACL, kind ACLKind, isDir bool, mapper *idmap.Mapper) error {
	if kind == KindDefault && !isDir {
		return fmt.Errorf("%w: default ACL requested on non-directory", ErrInvalidArgument)
	}

	var eflag uint32
	if kind == KindDefault {
		eflag = fileOrDirInherit | FlagInheritOnly
	}

	purgeForEmission(target, kind)

	if err := pacl.Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if len(pacl.Entries) < 3 {
		return fmt.Errorf("%w: posix ACL must have at least 3 entries", ErrInvalidArgument)
	}

	var maskMask uint32
	if maskEntry := pacl.ByTag(posixacl.TagMask); maskEntry != nil {
		maskMask = ^getMask(maskEntry.Perm, false, isDir)
	}

	userObj := pacl.ByTag(posixacl.TagUserObj)
	if userObj == nil {
		return fmt.Errorf("%w: posix ACL missing USER_OBJ", ErrInvalidArgument)
	}
	if pacl.Entries[0].Tag != posixacl.TagUserObj {
		return fmt.Errorf("%w: posix ACL's first entry must be USER_OBJ", ErrInvalidArgument)
	}
	addPair(target, eflag, getMask(userObj.Perm, true, isDir), whoOwnerString)

	for _, u := range pacl.NamedEntries(posixacl.TagUser) {
		name, err := mapper.UIDToName(u.Qualifier)
		if err != nil {
			return fmt.Errorf("%w: resolving uid %d: %v", ErrTranslationRefused, u.Qualifier, err)
		}
		target.Add(NewACE(TypeDeny, eflag, maskMask, name))
		addPair(target, eflag, getMask(u.Perm, false, isDir), name)
	}

	numAces := len(pacl.Entries)
	groupObj := pacl.ByTag(posixacl.TagGroupObj)
	if groupObj == nil {
		return fmt.Errorf("%w: posix ACL missing GROUP_OBJ", ErrInvalidArgument)
	}
	if numAces > 3 {
		target.Add(NewACE(TypeDeny, FlagIdentifierGroup|eflag, maskMask, whoGroupString))
	}
	groupMask := getMask(groupObj.Perm, false, isDir)
	target.Add(NewACE(TypeAllow, FlagIdentifierGroup|eflag, groupMask, whoGroupString))

	type namedGroupAllow struct {
		name string
		mask uint32
	}
	var groupAllows []namedGroupAllow
	for _, g := range pacl.NamedEntries(posixacl.TagGroup) {
		name, err := mapper.GIDToName(g.Qualifier)
		if err != nil {
			return fmt.Errorf("%w: resolving gid %d: %v", ErrTranslationRefused, g.Qualifier, err)
		}
		target.Add(NewACE(TypeDeny, FlagIdentifierGroup|eflag, maskMask, name))
		mask := getMask(g.Perm, false, isDir)
		groupAllows = append(groupAllows, namedGroupAllow{name, mask})
		target.Add(NewACE(TypeAllow, FlagIdentifierGroup|eflag, mask, name))
	}

	// Deferred deny tail: a user may belong to more than one group, so
	// every group's allow must be emitted before any group's deny trims
	// the accumulated permission.
	target.Add(NewACE(TypeDeny, FlagIdentifierGroup|eflag, ^groupMask, whoGroupString))
	for _, ga := range groupAllows {
		target.Add(NewACE(TypeDeny, FlagIdentifierGroup|eflag, ^ga.mask, ga.name))
	}

	other := pacl.ByTag(posixacl.TagOther)
	if other == nil {
		return fmt.Errorf("%w: posix ACL missing OTHER", ErrInvalidArgument)
	}
	addPair(target, eflag, getMask(other.Perm, false, isDir), whoEveryoneString)

	return nil
}
