package redis

import (
	"fmt"
	"strings"

	"github.com/pinchat/pinchat/internal/model"
)

// Key prefix for all chat-related data
const keyPrefix = "pinchat"

// identityKey returns the Redis key for an Identity
func identityKey(pin model.PIN) string {
	return fmt.Sprintf("%s:identity:%s", keyPrefix, pin)
}

// usernameIndexKey returns the Redis key for the username -> pin index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, strings.ToLower(username))
}

// contactsKey returns the Redis key for the SET of PINs a PIN has contacted
func contactsKey(owner model.PIN) string {
	return fmt.Sprintf("%s:contacts:%s", keyPrefix, owner)
}
