// Package pipeline executes bootstrap manifests against container runtimes.
//
// A bootstrap is an ordered sequence of eight steps that transform a bare
// base image into a least-privilege runtime image: base selection,
// environment configuration, workdir establishment, identity provisioning,
// dependency installation, source materialization, privilege
// de-escalation, and entrypoint declaration. The sequence is strictly
// linear with no branching and no rollback: the first failing step aborts
// the build, the partial container is destroyed, and no image is exported.
//
// The pipeline's central performance property is dependency layer caching.
// The container state after dependency installation is committed to a
// content-addressed cache keyed on the inputs that produce it — base
// reference, environment, workdir, identity, installer, and the raw
// requirements bytes — but never on the source tree. A build whose
// requirements are unchanged restores the cached layer and skips base
// resolution, identity provisioning, and installation entirely.
//
// Privilege de-escalation is one-way. Build state tracks whether execution
// is privileged or restricted; steps that mutate system state assert the
// former, and once privileges drop every exec and the exported image
// config use the restricted identity.
//
// Example usage:
//
//	result, err := pipeline.Run(ctx, rt, pipeline.Options{
//	    Bootstrap: b,
//	    Resource:  "my-bot",
//	    Root:      ".",
//	    Output:    "dist",
//	    Cache:     layerCache,
//	})
//	if err != nil {
//	    return err
//	}
package pipeline
