package repository

import "context"

// Fixed storage slots of the networking mini-app.
const (
	MyProfileSlot = "ntc-my-profile"
	ContactsSlot  = "ntc-contacts"
)

// KeyValueStore is the persistence capability the networking store runs on.
// Get reports ok=false for a key that was never set or has been removed.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type namespaceKey struct{}

// WithNamespace scopes every slot accessed with ctx to ns (one device).
func WithNamespace(ctx context.Context, ns string) context.Context {
	return context.WithValue(ctx, namespaceKey{}, ns)
}

// NamespaceFrom returns the namespace carried by ctx, or "".
func NamespaceFrom(ctx context.Context) string {
	ns, _ := ctx.Value(namespaceKey{}).(string)
	return ns
}

// SlotKey resolves a slot to its storage key for the namespace in ctx.
func SlotKey(ctx context.Context, slot string) string {
	if ns := NamespaceFrom(ctx); ns != "" {
		return ns + ":" + slot
	}
	return slot
}
