package contract

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// getRole reads an address's role, RoleNone when unset.
func getRole(d *diff, addr common.Address) (Role, error) {
	ptr, err := d.Get(roleKey(addr))
	if err != nil {
		return RoleNone, err
	}
	if ptr == nil || len(*ptr) != 1 {
		return RoleNone, nil
	}
	return Role((*ptr)[0]), nil
}

func setRole(d *diff, addr common.Address, r Role) {
	d.Set(roleKey(addr), string([]byte{byte(r)}))
}

func loadAdmins(d *diff) ([]common.Address, error) {
	ptr, err := d.Get(adminsKey())
	if err != nil {
		return nil, err
	}
	if ptr == nil || *ptr == "" {
		return nil, nil
	}
	list, err := decodeAddressList(*ptr)
	if err != nil {
		return nil, fmt.Errorf("decode admins: %w", err)
	}
	return list, nil
}

// addAdmin appends to the admin list, the set only ever grows.
func addAdmin(d *diff, addr common.Address) error {
	role, err := getRole(d, addr)
	if err != nil {
		return err
	}
	if role == RoleAdmin {
		return fail(ErrAlreadyAdmin, "%s is already an admin", addr.Hex())
	}
	list, err := loadAdmins(d)
	if err != nil {
		return err
	}
	list = append(list, addr)
	d.Set(adminsKey(), encodeAddressList(list))
	setRole(d, addr, RoleAdmin)
	return nil
}

// requireAdmin is the authorization check for every privileged call.
func requireAdmin(d *diff, caller common.Address) error {
	role, err := getRole(d, caller)
	if err != nil {
		return err
	}
	if role != RoleAdmin {
		return fail(ErrNotAdmin, "%s is not an admin", caller.Hex())
	}
	return nil
}
