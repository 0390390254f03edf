package services

import (
	"sort"
	"strings"

	"permguard-lab/internal/domain/models"
)

// dangerousPermissionWeights assigns severity points to security-sensitive
// Android permissions. Read-only after package initialization.
var dangerousPermissionWeights = map[string]int{
	"android.permission.READ_CONTACTS":          10,
	"android.permission.WRITE_CONTACTS":         10,
	"android.permission.READ_SMS":               15,
	"android.permission.SEND_SMS":               15,
	"android.permission.RECEIVE_SMS":            15,
	"android.permission.CAMERA":                 10,
	"android.permission.RECORD_AUDIO":           10,
	"android.permission.ACCESS_FINE_LOCATION":   15,
	"android.permission.ACCESS_COARSE_LOCATION": 10,
	"android.permission.READ_CALL_LOG":          15,
	"android.permission.WRITE_CALL_LOG":         15,
	"android.permission.PROCESS_OUTGOING_CALLS": 15,
	"android.permission.READ_EXTERNAL_STORAGE":  5,
	"android.permission.WRITE_EXTERNAL_STORAGE": 5,
	"android.permission.GET_ACCOUNTS":           5,
	"android.permission.USE_BIOMETRIC":          5,
	"android.permission.USE_FINGERPRINT":        5,
}

// dangerousPermissionLabels holds a display label for every weighted permission
var dangerousPermissionLabels = map[string]string{
	"android.permission.READ_CONTACTS":          "Contacts (Read)",
	"android.permission.WRITE_CONTACTS":         "Contacts (Write)",
	"android.permission.READ_SMS":               "SMS (Read)",
	"android.permission.SEND_SMS":               "SMS (Send)",
	"android.permission.RECEIVE_SMS":            "SMS (Receive)",
	"android.permission.CAMERA":                 "Camera",
	"android.permission.RECORD_AUDIO":           "Microphone",
	"android.permission.ACCESS_FINE_LOCATION":   "Location (Fine)",
	"android.permission.ACCESS_COARSE_LOCATION": "Location (Coarse)",
	"android.permission.READ_CALL_LOG":          "Call Log (Read)",
	"android.permission.WRITE_CALL_LOG":         "Call Log (Write)",
	"android.permission.PROCESS_OUTGOING_CALLS": "Outgoing Calls",
	"android.permission.READ_EXTERNAL_STORAGE":  "Storage (Read)",
	"android.permission.WRITE_EXTERNAL_STORAGE": "Storage (Write)",
	"android.permission.GET_ACCOUNTS":           "Accounts",
	"android.permission.USE_BIOMETRIC":          "Biometric",
	"android.permission.USE_FINGERPRINT":        "Fingerprint",
}

// PermissionWeight returns the severity points of a dangerous permission
func PermissionWeight(permission string) (int, bool) {
	w, ok := dangerousPermissionWeights[permission]
	return w, ok
}

// IsDangerousPermission reports whether permission is in the weight table
func IsDangerousPermission(permission string) bool {
	_, ok := dangerousPermissionWeights[permission]
	return ok
}

// PermissionLabel returns a human-readable label for a permission.
// Unknown permissions are labelled with their last dotted segment.
func PermissionLabel(permission string) string {
	if label, ok := dangerousPermissionLabels[permission]; ok {
		return label
	}
	if i := strings.LastIndex(permission, "."); i >= 0 {
		return permission[i+1:]
	}
	return permission
}

// DangerousPermissionNames returns every weighted permission, sorted by name
func DangerousPermissionNames() []string {
	names := make([]string, 0, len(dangerousPermissionWeights))
	for name := range dangerousPermissionWeights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DangerousPermissions returns the catalogue ordered by weight (highest first), then name
func DangerousPermissions() []models.DangerousPermission {
	catalogue := make([]models.DangerousPermission, 0, len(dangerousPermissionWeights))
	for name, weight := range dangerousPermissionWeights {
		catalogue = append(catalogue, models.DangerousPermission{
			Name:   name,
			Label:  dangerousPermissionLabels[name],
			Weight: weight,
		})
	}
	sort.Slice(catalogue, func(i, j int) bool {
		if catalogue[i].Weight != catalogue[j].Weight {
			return catalogue[i].Weight > catalogue[j].Weight
		}
		return catalogue[i].Name < catalogue[j].Name
	})
	return catalogue
}
