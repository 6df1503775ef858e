// Package appctx holds the request-scoped values shared by config, utils and models.
// It imports nothing from the service so every package can depend on it.
package appctx

import "context"

type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyToken         = ContextKey("Token")
	ContextKeyBankId        = ContextKey("BankId")
	ContextKeyUsername      = ContextKey("Username")
	ContextKeyUserId        = ContextKey("UserId")
	ContextKeyUserName      = ContextKey("UserName")
	ContextKeyRoleId        = ContextKey("RoleId")
	ContextKeyCorrelationId = ContextKey("CorrelationId")

	// ContextKeyIsAdmin marks platform admins, who see every bank.
	// Bank administrators never carry it.
	ContextKeyIsAdmin = ContextKey("IsAdmin")

	// ContextKeySkipTenantScope turns off bank scoping for background jobs
	// such as the outbox dispatcher's claim query.
	ContextKeySkipTenantScope = ContextKey("SkipTenantScope")
)

// Get returns the value stored under key when it has type T.
func Get[T any](ctx context.Context, key ContextKey) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	return Get[string](ctx, key)
}

func GetBool(ctx context.Context, key ContextKey) (bool, bool) {
	return Get[bool](ctx, key)
}

func GetInt(ctx context.Context, key ContextKey) (int, bool) {
	return Get[int](ctx, key)
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}
