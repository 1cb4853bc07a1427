// Package manifest defines the bootstrap manifest, the declarative
// descriptor a kilnd build executes.
//
// A manifest selects a pinned base image, fixes the interpreter
// environment, names the restricted identity the application runs as,
// declares a dependency manifest with its installer, and sets the image
// entrypoint. Manifests are YAML documents with strict field checking.
//
// Validation enforces the invariants the pipeline relies on: the base
// reference must be pinned to a tag or digest (mutable "latest" tags are
// rejected), the working directory must be absolute, and the identity
// must be a non-root system account.
//
// Example manifest:
//
//	base: docker.io/library/python:3.12-slim
//	env:
//	  PYTHONUNBUFFERED: "1"
//	  PYTHONDONTWRITEBYTECODE: "1"
//	workdir: /app
//	identity:
//	  group: bot
//	  user: bot
//	dependencies:
//	  manifest: requirements.txt
//	entrypoint: [python, main.py]
package manifest
