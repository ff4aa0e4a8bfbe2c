package pipeline

import "context"

type dirKey struct{}
type envKey struct{}

// WithDir returns a context whose spawned stages run in dir.
func WithDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, dirKey{}, dir)
}

// DirFromContext returns the working directory set by WithDir.
func DirFromContext(ctx context.Context) string {
	dir, _ := ctx.Value(dirKey{}).(string)
	return dir
}

// WithEnv returns a context whose spawned stages get env (KEY=value form)
// instead of the current process environment.
func WithEnv(ctx context.Context, env []string) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// EnvFromContext returns the environment set by WithEnv, or nil.
func EnvFromContext(ctx context.Context) []string {
	env, _ := ctx.Value(envKey{}).([]string)
	return env
}
