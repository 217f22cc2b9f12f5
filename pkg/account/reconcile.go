package account

// Reconcile computes the binding mutations that turn the existing active
// bindings of an account into the desired role set.
//
// Existing bindings whose role is not desired come back with Deleted set, in
// their original order. Desired roles with no existing binding come back as new
// bindings (ID 0), in first-occurrence order with duplicates collapsed.
// Deletions always precede creations. Equal sets yield an empty result.
func Reconcile(userID int64, userType UserType, existing []Binding, desired []int64) []Binding {
	wanted := make(map[int64]struct{}, len(desired))
	for _, roleID := range desired {
		wanted[roleID] = struct{}{}
	}

	held := make(map[int64]struct{}, len(existing))
	var mutations []Binding
	for _, b := range existing {
		held[b.RoleID] = struct{}{}
		if _, ok := wanted[b.RoleID]; !ok {
			b.Deleted = true
			mutations = append(mutations, b)
		}
	}

	for _, roleID := range desired {
		if _, ok := held[roleID]; ok {
			continue
		}
		held[roleID] = struct{}{}
		mutations = append(mutations, Binding{
			UserID:   userID,
			RoleID:   roleID,
			UserType: userType,
		})
	}
	return mutations
}

// newBindings builds one binding per distinct role id for a freshly created account
func newBindings(userID int64, userType UserType, roleIDs []int64) []Binding {
	return Reconcile(userID, userType, nil, roleIDs)
}

// roleIDsOf flattens roles into their ids
func roleIDsOf(roles []Role) []int64 {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	return ids
}
