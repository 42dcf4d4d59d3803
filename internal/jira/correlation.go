package jira

import "context"

type correlationKey struct{}

// WithCorrelationID tags the context so every request sent with it carries
// an X-Correlation-ID header. Jira echoes the header into its audit
// webhooks, which is what lets one delivery be traced across both
// instances' logs.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
