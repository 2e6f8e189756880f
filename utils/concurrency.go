package utils

import (
	"sync"
	"time"
)

var (
	actionLocks = make(map[string]time.Time)
	actionMutex = &sync.Mutex{}
)

// actionLockDuration bounds how long a lock survives a handler that never
// released it.
const actionLockDuration = 30 * time.Second

func actionKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// AcquireActionLock stops two moderators acting on the same member at the
// same time. It returns false while another action holds the lock.
func AcquireActionLock(guildID, userID string) bool {
	actionMutex.Lock()
	defer actionMutex.Unlock()

	key := actionKey(guildID, userID)
	if since, ok := actionLocks[key]; ok && time.Since(since) < actionLockDuration {
		return false
	}
	actionLocks[key] = time.Now()
	return true
}

// ReleaseActionLock frees the lock taken by AcquireActionLock.
func ReleaseActionLock(guildID, userID string) {
	actionMutex.Lock()
	defer actionMutex.Unlock()
	delete(actionLocks, actionKey(guildID, userID))
}
