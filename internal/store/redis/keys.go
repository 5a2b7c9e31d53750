package redis

const (
	// KeyPrefixSession is the prefix for every session key
	KeyPrefixSession = "groupmark:session:"
	// FieldActiveGroup is the session field holding the active group id
	FieldActiveGroup = "active_group"
)

// SessionKey returns the Redis key for one session field of a workspace
func SessionKey(workspace, field string) string {
	return KeyPrefixSession + workspace + ":" + field
}
