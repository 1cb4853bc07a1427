// Package cache stores dependency layer archives keyed by content digest.
//
// The key for a bootstrap's dependency layer covers everything that
// determines the container state after dependency installation: the base
// reference, environment, working directory, identity, installer argv,
// the requirements file bytes, and the target platform. The application
// source tree is excluded so that source-only changes reuse the cached
// layer and skip installation entirely.
//
// Entries are OCI archives written atomically. A cache hit replaces the
// base resolution, identity provisioning, and dependency installation
// steps of a build; the pipeline resumes from the restored container.
package cache
