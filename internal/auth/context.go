package auth

import "context"

type contextKey struct{}

// AuthContext carries the resolved login identity for a request.
type AuthContext struct {
	Username    string
	Role        string
	DisplayName string
	MemberID    string
	Token       string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func Username(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Username
}

// IsElevated reports whether the request identity holds one of the roles
// that grant admin panel access.
func IsElevated(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	switch ac.Role {
	case "admin", "manager", "support":
		return true
	}
	return false
}
