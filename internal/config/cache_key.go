package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestEndTimeKey returns the cache key for a test's absolute end time (unix seconds).
func (r *CacheKeyStruct) TestEndTimeKey(testID int) string {
	return fmt.Sprintf("test:%d:end_time", testID)
}

// TestDurationKey returns the cache key for a test's duration in minutes.
func (r *CacheKeyStruct) TestDurationKey(testID int) string {
	return fmt.Sprintf("test:%d:duration", testID)
}

// SessionChannel returns the Redis PubSub channel for a test session's
// answer/flag events. Every team member streaming the session subscribes here.
func (r *CacheKeyStruct) SessionChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:events", sessionID)
}

var CacheKey = NewCacheKeyStruct()
