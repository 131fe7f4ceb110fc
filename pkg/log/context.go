package log

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"
)

type contextKey string

const requestContextKey contextKey = "mediconnect_request_context"

// unknownRequestID is reported for contexts that never went through the request middleware.
const unknownRequestID = "unknown"

// RequestContext carries request tracing information through a request.
// The principal fields are filled in by the auth middleware after the
// logging middleware created the context, so they are guarded by mu.
type RequestContext struct {
	RequestID string
	StartTime time.Time

	mu       sync.RWMutex
	userID   string
	role     string
	metadata map[string]interface{}
}

var (
	randSource = rand.NewSource(time.Now().UnixNano())
	randMutex  sync.Mutex
	// base36 alphabet, lowercase letters and digits
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID returns a 10 character base36 id such as mgrn0zfqda.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext attaches a new RequestContext to ctx.
func WithRequestContext(ctx context.Context, requestID string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		StartTime: time.Now(),
		metadata:  make(map[string]interface{}),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext returns the RequestContext of ctx, or a detached empty one.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{
		RequestID: unknownRequestID,
		metadata:  make(map[string]interface{}),
	}
}

// GetRequestID returns the request id of ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// SetPrincipal records the authenticated caller on the request context.
func SetPrincipal(ctx context.Context, userID, role string) {
	reqCtx := GetRequestContext(ctx)
	reqCtx.mu.Lock()
	reqCtx.userID = userID
	reqCtx.role = role
	reqCtx.mu.Unlock()
}

// Principal returns the caller recorded by SetPrincipal.
func (r *RequestContext) Principal() (userID, role string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userID, r.role
}

// SetMetadata stores an extra tracing value on the request context.
func SetMetadata(ctx context.Context, key string, value interface{}) {
	reqCtx := GetRequestContext(ctx)
	reqCtx.mu.Lock()
	defer reqCtx.mu.Unlock()
	if reqCtx.metadata == nil {
		reqCtx.metadata = make(map[string]interface{})
	}
	reqCtx.metadata[key] = value
}

// Metadata returns the values stored by SetMetadata as key/value pairs
// ordered by key.
func (r *RequestContext) Metadata() []interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.metadata))
	for k := range r.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		kvs = append(kvs, k, r.metadata[k])
	}
	return kvs
}

// GetElapsedTime returns the milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
