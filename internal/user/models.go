// Package user reads growers and their push registration.
package user

// User is a grower account.
type User struct {
	// ID is the user's UUID.
	ID string

	Name  string
	Email string

	// NotificationToken is the device push token, nil when the user never
	// registered a device.
	NotificationToken *string
}

// CanReceivePush reports whether the user has a non-empty push token.
func (u *User) CanReceivePush() bool {
	return u.NotificationToken != nil && *u.NotificationToken != ""
}
