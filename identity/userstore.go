// Package identity implements the login/permission identity service: a user
// store keyed by username/password, and the uid/gid/cwd session state a
// login installs.
package identity

import (
	"fmt"
	"io"
	"strings"

	_ "embed"

	"github.com/gocarina/gocsv"
)

// User is one row of the embedded user store.
type User struct {
	Username string `csv:"username"`
	Password string `csv:"password"`
	UID      uint16 `csv:"uid"`
	GID      uint16 `csv:"gid"`
}

//go:embed users.csv
var usersRawCSV string

var users map[string]User

func init() {
	users = make(map[string]User)
	reader := strings.NewReader(usersRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row User) error {
		if _, exists := users[row.Username]; exists {
			return fmt.Errorf("duplicate user definition for %q", row.Username)
		}
		users[row.Username] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// Authenticate checks a (username, password) pair against the user store.
func Authenticate(username, password string) (User, bool) {
	user, ok := users[username]
	if !ok || user.Password != password {
		return User{}, false
	}
	return user, true
}

// List returns every known user, in the store's declaration order.
func List() []User {
	reader := strings.NewReader(usersRawCSV)
	var ordered []User
	_ = gocsv.UnmarshalToCallback(reader, func(row User) error {
		ordered = append(ordered, row)
		return nil
	})
	return ordered
}
