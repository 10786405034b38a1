package content

import (
	"context"

	"go.uber.org/zap"

	"github.com/dooilabs/context101/internal/course"
)

// Fallback tries the remote provider first and, on any error, logs the
// failure and retries the call against the local provider. The fallback
// is per-call, never sticky.
type Fallback struct {
	remote Provider
	local  Provider
	log    *zap.Logger
}

var _ Provider = (*Fallback)(nil)

// NewFallback wires a remote-first provider with a local fallback.
func NewFallback(remote, local Provider, log *zap.Logger) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fallback{remote: remote, local: local, log: log}
}

func (f *Fallback) warn(op string, err error) {
	f.log.Warn("remote content unavailable, falling back to local",
		zap.String("op", op),
		zap.Error(err),
	)
}

// ListCourses implements Provider.
func (f *Fallback) ListCourses(ctx context.Context, filter course.ListFilter) ([]course.Course, error) {
	courses, err := f.remote.ListCourses(ctx, filter)
	if err == nil {
		return courses, nil
	}
	f.warn("listCourses", err)
	return f.local.ListCourses(ctx, filter)
}

// GetOverview implements Provider.
func (f *Fallback) GetOverview(ctx context.Context, courseID string) (*course.Tree, error) {
	tree, err := f.remote.GetOverview(ctx, courseID)
	if err == nil {
		return tree, nil
	}
	f.warn("getOverview", err)
	return f.local.GetOverview(ctx, courseID)
}

// GetStep implements Provider.
func (f *Fallback) GetStep(ctx context.Context, courseID, lessonID, stepID string) (string, error) {
	content, err := f.remote.GetStep(ctx, courseID, lessonID, stepID)
	if err == nil {
		return content, nil
	}
	f.warn("getStep", err)
	return f.local.GetStep(ctx, courseID, lessonID, stepID)
}

// ResolveStart implements Provider.
func (f *Fallback) ResolveStart(ctx context.Context, req StartRequest) (*StartResult, error) {
	res, err := f.remote.ResolveStart(ctx, req)
	if err == nil {
		return res, nil
	}
	f.warn("resolveStart", err)
	return f.local.ResolveStart(ctx, req)
}

// NextStep implements Provider.
func (f *Fallback) NextStep(ctx context.Context, req NextRequest) (*NextResult, error) {
	res, err := f.remote.NextStep(ctx, req)
	if err == nil {
		return res, nil
	}
	f.warn("nextStep", err)
	return f.local.NextStep(ctx, req)
}
