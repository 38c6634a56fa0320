//go:build !darwin && !linux && !windows

package cookieferry

import "fmt"

func resolveMasterKey(vendor vendorInfo, _ []Profile, _ Options) (MasterKey, []string, error) {
	return MasterKey{}, nil, fmt.Errorf("%w: %s key resolution unsupported on this OS", ErrKeyUnavailable, vendor.label)
}
