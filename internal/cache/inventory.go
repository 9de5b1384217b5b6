package cache

import (
	"fmt"
	"time"
)

const (
	userKeyPrefix     = "user:%d"
	usernameKeyPrefix = "user:name:%s"
	groupKeyPrefix    = "group:%s"
	revokedKeyPrefix  = "session:revoked:%s"
	pageKeyPrefix     = "page:"
	csrfKeyPrefix     = "csrf:"
)

const (
	UserTTL  = 5 * time.Minute
	GroupTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(userKeyPrefix, userID)
}

func UsernameKey(username string) string {
	return fmt.Sprintf(usernameKeyPrefix, username)
}

func GroupKey(slug string) string {
	return fmt.Sprintf(groupKeyPrefix, slug)
}

// RevokedKey marks a logged-out session token id.
func RevokedKey(tokenID string) string {
	return fmt.Sprintf(revokedKeyPrefix, tokenID)
}
